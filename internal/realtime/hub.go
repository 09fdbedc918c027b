package realtime

import (
	"fmt"
	"sync"

	"github.com/motlatsimoea/fnd/pkg/logger"
)

// Subscriber is a live session that can receive broadcast payloads.
type Subscriber interface {
	Send(v interface{}) error
}

// Hub is the room membership registry: room key -> connected sessions.
// It is pure routing state, shared by every session goroutine and rebuilt
// from nothing on restart; clients re-join when they reconnect.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[Subscriber]struct{}),
	}
}

// Join registers a session under a room key. A session may join several
// rooms, and several sessions (multiple tabs) may share a room.
func (h *Hub) Join(room string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[Subscriber]struct{})
	}
	h.rooms[room][s] = struct{}{}
}

// Leave removes a session from a room. Leaving twice, or leaving a room
// never joined, is a no-op.
func (h *Hub) Leave(room string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers payload to every session joined to the room at the
// moment of the call. There is no backlog: sessions joining afterwards do
// not receive it. Send failures are logged and do not affect the other
// members.
func (h *Hub) Broadcast(room string, payload interface{}) {
	h.mu.RLock()
	members := make([]Subscriber, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	for _, s := range members {
		if err := s.Send(payload); err != nil {
			logger.Warn().Err(err).Str("room", room).Msg("Broadcast delivery failed")
		}
	}
}

// RoomSize reports how many sessions are joined to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ChatRoom is the registry key for a chat inbox.
func ChatRoom(uniqueKey string) string {
	return "chat_" + uniqueKey
}

// NotificationRoom is the per-user registry key notifications are pushed
// to. It is purely a routing name, never persisted.
func NotificationRoom(userID uint) string {
	return fmt.Sprintf("notifications_%d", userID)
}
