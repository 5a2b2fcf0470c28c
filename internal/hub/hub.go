package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"

	"github.com/user/kvmon/internal/monitor"
)

// Hub fans monitored events out to websocket clients. One goroutine
// (Run) owns the clients map transitions; senders drop rather than
// block when a client or the hub itself cannot keep up, because the
// monitor stream must never stall on a slow viewer.
type Hub struct {
	target     string
	token      string
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan hubBroadcast
	mu         sync.RWMutex
	ctxWrap    *ctxWrapper
	running    atomic.Bool
	events     atomic.Int64
}

type ctxWrapper struct {
	ctx context.Context
}

// New creates a hub for the given monitored target. The token guards
// the websocket endpoint.
func New(token, target string) *Hub {
	return &Hub{
		target:     target,
		token:      token,
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan hubBroadcast, 256),
		ctxWrap:    &ctxWrapper{ctx: context.Background()},
	}
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

// Run owns the client lifecycle until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			go client.writePump(h.getContext())
			go client.readPump(h.getContext())
			slog.Info("viewer connected", "client", client.id, "total", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("viewer disconnected", "client", client.id, "total", h.ClientCount())

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				if !c.wantsCommand(msg.command) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					slog.Warn("viewer send buffer full, dropping event", "client", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWebSocket upgrades an authenticated request and registers the
// client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || token != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	client := newClient(conn, h)
	if stats, err := json.Marshal(h.stats()); err == nil {
		client.send <- stats
	}

	select {
	case h.register <- client:
	default:
		slog.Warn("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
	}
}

// BroadcastEvent publishes one monitored command to all interested
// clients.
func (h *Hub) BroadcastEvent(ev monitor.Event) {
	seq := h.events.Add(1)
	data, err := json.Marshal(EventMessage{Type: "event", Event: ev, Seq: seq})
	if err != nil {
		slog.Error("marshal event message failed", "error", err)
		return
	}
	select {
	case h.broadcast <- hubBroadcast{data: data, command: ev.Command}:
	default:
		slog.Warn("broadcast channel full, dropping event")
	}
}

func (h *Hub) stats() StatsMessage {
	return StatsMessage{
		Type:    "stats",
		Target:  h.target,
		Clients: h.ClientCount(),
		Events:  h.events.Load(),
	}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EventCount returns how many events the hub has published.
func (h *Hub) EventCount() int64 {
	return h.events.Load()
}

func (h *Hub) SendError(client *Client, message string) {
	data, err := json.Marshal(ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
