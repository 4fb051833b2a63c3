package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Inbound is a frame sent by the browser chat screen.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Client is one browser websocket. Outbound frames are queued on send and written by writePump;
// inbound frames are handed to the handler from readPump.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// Send queues v as a JSON text frame. It reports false when the client is gone or too slow.
func (c *Client) Send(v any) bool {
	msg, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("Failed to encode websocket frame", zap.Error(err))
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.closed = true
		close(c.send)
		return false
	}
}

// Close sends a close frame and ends the connection.
func (c *Client) Close() {
	c.shutdown()
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ServeWs upgrades the request and runs the socket until either side hangs up. onOpen runs
// before any frame is read; onMessage gets each inbound frame; onClose runs once at the end.
func ServeWs(w http.ResponseWriter, r *http.Request, onOpen func(*Client), onMessage func(*Client, Inbound), onClose func(*Client)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}

	go client.writePump()
	if onOpen != nil {
		onOpen(client)
	}
	client.readPump(onMessage)
	if onClose != nil {
		onClose(client)
	}
}

// readPump reads frames until the connection fails, then stops the writer.
func (c *Client) readPump(onMessage func(*Client, Inbound)) {
	defer func() {
		c.shutdown()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var in Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("Websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		if onMessage != nil {
			onMessage(c, in)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The client was shut down.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
