package realtime

import (
	"github.com/gin-gonic/gin"
	"github.com/motlatsimoea/fnd/internal/store"
	"github.com/motlatsimoea/fnd/pkg/logger"
)

// NotificationSocket serves the per-user push channel. The room is
// derived from the resolved identity alone; no path parameter.
type NotificationSocket struct {
	hub   *Hub
	store store.Store
}

func NewNotificationSocket(hub *Hub, st store.Store) *NotificationSocket {
	return &NotificationSocket{hub: hub, store: st}
}

type connectionStatus struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Handle upgrades GET /ws/notifications. Unlike the chat socket, the
// client gets a status frame on both accept and reject.
func (ns *NotificationSocket) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Notification socket upgrade failed")
		return
	}

	userID, ok := ResolveIdentity(c.Request)
	if !ok {
		client := NewClient(conn, 0, "")
		_ = client.Send(connectionStatus{Type: "connection", Status: "rejected"})
		conn.Close()
		return
	}
	if _, err := ns.store.UserByID(userID); err != nil {
		client := NewClient(conn, 0, "")
		_ = client.Send(connectionStatus{Type: "connection", Status: "rejected"})
		conn.Close()
		return
	}

	client := NewClient(conn, userID, "")
	room := NotificationRoom(userID)
	ns.hub.Join(room, client)
	defer func() {
		ns.hub.Leave(room, client)
		conn.Close()
	}()

	if err := client.Send(connectionStatus{Type: "connection", Status: "connected"}); err != nil {
		return
	}

	logger.Info().Uint("user_id", userID).Msg("Notification session active")

	// The channel is push-only; drain inbound frames until disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
