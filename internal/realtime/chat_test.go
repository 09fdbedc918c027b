package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/motlatsimoea/fnd/internal/config"
	"github.com/motlatsimoea/fnd/internal/models"
	"github.com/motlatsimoea/fnd/internal/store"
	"github.com/motlatsimoea/fnd/pkg/crypto"
	"github.com/motlatsimoea/fnd/pkg/utils"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupChatTest wires a real store, codec and hub behind an httptest
// server, with users 1 and 2 sharing inbox "1_2" and user 3 outside it.
func setupChatTest(t *testing.T) (*httptest.Server, *Hub, store.Store, *crypto.Codec, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Inbox{}, &models.Message{}, &models.Notification{}))

	// The shared-cache DB survives across tests in this package; start clean.
	db.Exec("DELETE FROM messages")
	db.Exec("DELETE FROM inbox_participants")
	db.Exec("DELETE FROM inboxes")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM users")

	for _, u := range []models.User{
		{ID: 1, Username: "alice", Email: "alice@example.com", Password: "x"},
		{ID: 2, Username: "bob", Email: "bob@example.com", Password: "x"},
		{ID: 3, Username: "carol", Email: "carol@example.com", Password: "x"},
	} {
		assert.NoError(t, db.Create(&u).Error)
	}

	st := store.New(db)
	_, err = st.GetOrCreateInbox(1, 2)
	assert.NoError(t, err)

	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	codec, err := crypto.NewCodec(key)
	assert.NoError(t, err)

	hub := NewHub()
	router := gin.New()
	router.GET("/ws/chat/:key", NewChatSocket(hub, st, codec).Handle)
	router.GET("/ws/notifications", NewNotificationSocket(hub, st).Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, hub, st, codec, db
}

func dialChat(t *testing.T, server *httptest.Server, path string, userID uint) *websocket.Conn {
	t.Helper()
	token, err := utils.GenerateToken(userID)
	assert.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + path + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	return conn
}

func waitForRoomSize(t *testing.T, hub *Hub, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.RoomSize(room) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d members (have %d)", room, want, hub.RoomSize(room))
}

func readChatEvent(t *testing.T, conn *websocket.Conn) ChatEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event ChatEvent
	assert.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestChatMessageBroadcastToBothSessions(t *testing.T) {
	server, hub, _, codec, db := setupChatTest(t)

	conn1 := dialChat(t, server, "/ws/chat/1_2", 1)
	defer conn1.Close()
	conn2 := dialChat(t, server, "/ws/chat/1_2", 2)
	defer conn2.Close()
	waitForRoomSize(t, hub, "chat_1_2", 2)

	assert.NoError(t, conn1.WriteJSON(map[string]string{"message": "hi", "temp_id": "t1"}))

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		event := readChatEvent(t, conn)
		assert.Equal(t, "chat_message", event.Type)
		assert.Equal(t, "hi", event.Message)
		assert.Equal(t, "t1", event.TempID)
		assert.Equal(t, uint(1), event.SenderInfo.ID)
		assert.Equal(t, "alice", event.SenderInfo.Username)
		assert.NotZero(t, event.ID)
	}

	// Exactly one persisted row, ciphertext only, decrypting to the text
	var messages []models.Message
	assert.NoError(t, db.Find(&messages).Error)
	assert.Len(t, messages, 1)
	assert.NotEqual(t, "hi", messages[0].EncryptedContent)

	plaintext, err := codec.Decrypt(messages[0].EncryptedContent)
	assert.NoError(t, err)
	assert.Equal(t, "hi", plaintext)
	assert.Equal(t, uint(1), messages[0].SenderID)
}

func TestChatWhitespaceMessagesDropped(t *testing.T) {
	server, hub, _, _, db := setupChatTest(t)

	conn := dialChat(t, server, "/ws/chat/1_2", 1)
	defer conn.Close()
	waitForRoomSize(t, hub, "chat_1_2", 1)

	assert.NoError(t, conn.WriteJSON(map[string]string{"message": ""}))
	assert.NoError(t, conn.WriteJSON(map[string]string{"message": "   \t  "}))
	assert.NoError(t, conn.WriteJSON(map[string]string{"message": "real one"}))

	// The first frame delivered is the non-empty message
	event := readChatEvent(t, conn)
	assert.Equal(t, "real one", event.Message)

	var count int64
	assert.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestChatMalformedFrameKeepsSessionAlive(t *testing.T) {
	server, hub, _, _, _ := setupChatTest(t)

	conn := dialChat(t, server, "/ws/chat/1_2", 1)
	defer conn.Close()
	waitForRoomSize(t, hub, "chat_1_2", 1)

	assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("this is not json")))
	assert.NoError(t, conn.WriteJSON(map[string]string{"message": "still works"}))

	event := readChatEvent(t, conn)
	assert.Equal(t, "still works", event.Message)
}

func TestChatNonParticipantRejectedBeforeJoin(t *testing.T) {
	server, hub, _, _, _ := setupChatTest(t)

	// carol is not a participant of inbox 1_2
	conn := dialChat(t, server, "/ws/chat/1_2", 3)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.RoomSize("chat_1_2"))
}

func TestChatAnonymousRejected(t *testing.T) {
	server, hub, _, _, _ := setupChatTest(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat/1_2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.RoomSize("chat_1_2"))
}

func TestChatUnknownRoomRejected(t *testing.T) {
	server, hub, _, _, _ := setupChatTest(t)

	conn := dialChat(t, server, "/ws/chat/9_10", 1)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.RoomSize("chat_9_10"))
}

func TestChatDisconnectLeavesRoom(t *testing.T) {
	server, hub, _, _, _ := setupChatTest(t)

	conn := dialChat(t, server, "/ws/chat/1_2", 1)
	waitForRoomSize(t, hub, "chat_1_2", 1)

	conn.Close()
	waitForRoomSize(t, hub, "chat_1_2", 0)
}

func TestNotificationSocketStatusFrames(t *testing.T) {
	server, hub, _, _, _ := setupChatTest(t)

	// Authenticated connect gets a connected status frame
	conn := dialChat(t, server, "/ws/notifications", 2)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var status connectionStatus
	assert.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, "connection", status.Type)
	assert.Equal(t, "connected", status.Status)
	waitForRoomSize(t, hub, NotificationRoom(2), 1)

	// Anonymous connect gets rejected then closed
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications"
	anon, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer anon.Close()

	anon.SetReadDeadline(time.Now().Add(2 * time.Second))
	assert.NoError(t, anon.ReadJSON(&status))
	assert.Equal(t, "rejected", status.Status)

	_, _, err = anon.ReadMessage()
	assert.Error(t, err)
}

func TestNotificationSocketReceivesPush(t *testing.T) {
	server, hub, _, _, _ := setupChatTest(t)

	conn := dialChat(t, server, "/ws/notifications", 2)
	defer conn.Close()

	var status connectionStatus
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	assert.NoError(t, conn.ReadJSON(&status))
	waitForRoomSize(t, hub, NotificationRoom(2), 1)

	hub.Broadcast(NotificationRoom(2), map[string]interface{}{
		"event":   "notification",
		"message": "alice liked your post.",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	assert.NoError(t, err)

	var payload map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "notification", payload["event"])
	assert.Equal(t, "alice liked your post.", payload["message"])
}
