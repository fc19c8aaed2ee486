package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"crypto_search/internal/infra"
	"crypto_search/internal/service"
	"crypto_search/internal/view"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// searchMsg is the only message clients send: it replaces their filter.
type searchMsg struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

// client is one websocket connection. All writes go through its writer goroutine.
type client struct {
	conn *websocket.Conn
	out  chan view.Page
	done chan struct{}

	mu    sync.Mutex
	query string
}

func (c *client) setQuery(q string) {
	c.mu.Lock()
	c.query = q
	c.mu.Unlock()
}

func (c *client) getQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// push queues page, replacing any page the writer has not sent yet.
func (c *client) push(page view.Page) {
	for {
		select {
		case c.out <- page:
			return
		default:
		}
		select {
		case <-c.out:
		default:
		}
	}
}

// Hub fans loop state out to websocket clients, each rendered
// with that client's own filter.
type Hub struct {
	src     StateSource
	metrics *infra.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub(src StateSource, metrics *infra.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		src:     src,
		metrics: metrics,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Run forwards every loop state change to connected clients until ctx ends.
// Failures and recoveries are pushed too, not only new snapshots.
func (h *Hub) Run(ctx context.Context) {
	updates, unsubscribe := h.src.SubscribeState()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			h.broadcast(state)
		}
	}
}

func (h *Hub) broadcast(state service.State) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.push(view.Build(state, c.getQuery()))
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	cl := &client{
		conn:  conn,
		out:   make(chan view.Page, 1),
		done:  make(chan struct{}),
		query: r.URL.Query().Get("q"),
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.metrics.IncrementConnections()

	defer func() {
		close(cl.done)
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		h.metrics.DecrementConnections()
	}()

	go h.writeLoop(cl)

	// Greet with the current page.
	cl.push(view.Build(h.src.State(), cl.getQuery()))

	h.readLoop(cl)
}

func (h *Hub) writeLoop(cl *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case page := <-cl.out:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(page); err != nil {
				cl.conn.Close()
				return
			}
		case <-ping.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.conn.Close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

func (h *Hub) readLoop(cl *client) {
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var msg searchMsg
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "search" {
			continue
		}
		cl.setQuery(msg.Query)
		cl.push(view.Build(h.src.State(), msg.Query))
	}
}
