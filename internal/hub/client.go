package hub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Client is one connected websocket viewer.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	subMu   sync.RWMutex
	filters map[string]struct{}
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 256),
		hub:  hub,
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(32768)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.SendError(c, "invalid message format")
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.setFilters(msg.Commands)
		case "stats":
			if data, err := json.Marshal(c.hub.stats()); err == nil {
				select {
				case c.send <- data:
				default:
				}
			}
		default:
			c.hub.SendError(c, "unknown message type: "+msg.Type)
		}
	}
}

// setFilters replaces the client's command filter. Empty means the
// whole stream.
func (c *Client) setFilters(commands []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if len(commands) == 0 {
		c.filters = nil
		return
	}
	c.filters = make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		c.filters[strings.ToUpper(strings.TrimSpace(cmd))] = struct{}{}
	}
}

func (c *Client) wantsCommand(command string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if c.filters == nil {
		return true
	}
	_, ok := c.filters[strings.ToUpper(command)]
	return ok
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}
