package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/motlatsimoea/fnd/internal/store"
	"github.com/motlatsimoea/fnd/pkg/crypto"
	"github.com/motlatsimoea/fnd/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from the frontend origin; CORS policy lives at the
	// HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatSocket runs the per-connection chat session: handshake, identity
// resolution, participant authorization, then a sequential read loop that
// validates, encrypts, persists and fans out each inbound message.
type ChatSocket struct {
	hub   *Hub
	store store.Store
	codec *crypto.Codec
}

func NewChatSocket(hub *Hub, st store.Store, codec *crypto.Codec) *ChatSocket {
	return &ChatSocket{hub: hub, store: st, codec: codec}
}

// chatFrame is the inbound payload. temp_id is an opaque client token the
// sender uses to reconcile its optimistic UI with the persisted message.
type chatFrame struct {
	Message string `json:"message"`
	TempID  string `json:"temp_id"`
}

type senderInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// ChatEvent is the frame broadcast to every session in the room.
type ChatEvent struct {
	Type       string     `json:"type"`
	ID         uint       `json:"id"`
	TempID     string     `json:"temp_id,omitempty"`
	SenderInfo senderInfo `json:"sender_info"`
	Message    string     `json:"message"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Handle upgrades GET /ws/chat/:key. An anonymous caller, an unknown
// room, or a caller who is not a participant gets the transport closed
// with no content frame.
func (cs *ChatSocket) Handle(c *gin.Context) {
	key := c.Param("key")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Chat socket upgrade failed")
		return
	}

	userID, ok := ResolveIdentity(c.Request)
	if !ok {
		conn.Close()
		return
	}

	inbox, err := cs.store.InboxByKey(key)
	if err != nil {
		conn.Close()
		return
	}
	member, err := cs.store.IsParticipant(userID, inbox.ID)
	if err != nil || !member {
		conn.Close()
		return
	}
	user, err := cs.store.UserByID(userID)
	if err != nil {
		conn.Close()
		return
	}

	client := NewClient(conn, user.ID, user.Username)
	room := ChatRoom(key)
	cs.hub.Join(room, client)
	defer func() {
		cs.hub.Leave(room, client)
		conn.Close()
	}()

	logger.Info().Uint("user_id", user.ID).Str("room", room).Msg("Chat session active")
	cs.readLoop(client, room, inbox.ID)
	logger.Info().Uint("user_id", user.ID).Str("room", room).Msg("Chat session closed")
}

// readLoop processes frames one at a time; per-message failures are
// logged and dropped, never broadcast and never fatal to the session.
func (cs *ChatSocket) readLoop(client *Client, room string, inboxID uint) {
	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Str("room", room).Msg("Chat socket read error")
			}
			return
		}

		var frame chatFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Debug().Err(err).Str("room", room).Msg("Dropping malformed chat frame")
			continue
		}

		text := strings.TrimSpace(frame.Message)
		if text == "" {
			continue
		}

		ciphertext, err := cs.codec.Encrypt(text)
		if err != nil {
			logger.Error().Err(err).Str("room", room).Msg("Message encryption failed, frame dropped")
			continue
		}

		msg, err := cs.store.CreateMessage(inboxID, client.UserID, ciphertext)
		if err != nil {
			logger.Error().Err(err).Str("room", room).Msg("Message persistence failed, frame dropped")
			continue
		}

		// Broadcast what was actually persisted, decrypted back out.
		plaintext, err := cs.codec.Decrypt(msg.EncryptedContent)
		if err != nil {
			logger.Error().Err(err).Uint("message_id", msg.ID).Msg("Decrypt-for-broadcast failed")
			continue
		}

		cs.hub.Broadcast(room, ChatEvent{
			Type:   "chat_message",
			ID:     msg.ID,
			TempID: frame.TempID,
			SenderInfo: senderInfo{
				ID:       client.UserID,
				Username: client.Username,
			},
			Message:   plaintext,
			Timestamp: msg.CreatedAt,
		})
	}
}
