package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Client binds a websocket connection to a resolved identity. The write
// lock serializes frames from concurrent broadcasters; reads stay on the
// session's own goroutine.
type Client struct {
	UserID   uint
	Username string

	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewClient(conn *websocket.Conn, userID uint, username string) *Client {
	return &Client{
		UserID:   userID,
		Username: username,
		conn:     conn,
	}
}

// Send marshals v and writes it as a single text frame.
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
