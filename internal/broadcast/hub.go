// Package broadcast pushes engine events to connected UI clients over
// WebSocket.
package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"memepad-engine/internal/observability"
)

// Hub fans messages out to every connected client. Writes to a dead
// client evict it.
type Hub struct {
	clients  map[*websocket.Conn]struct{}
	mu       sync.Mutex
	upgrader websocket.Upgrader
	metrics  *observability.Metrics
	log      *logrus.Entry
}

// Option configures Hub.
type Option func(*Hub)

// WithMetrics keeps the connected-clients gauge current.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// NewHub creates an empty hub.
func NewHub(log *logrus.Entry, opts ...Option) *Hub {
	h := &Hub{
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:      log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// updateGauge reports the client count. Callers hold h.mu.
func (h *Hub) updateGauge() {
	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(len(h.clients)))
	}
}

// Broadcast marshals v and sends it to every connected client.
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("marshal broadcast message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.WithError(err).Debug("evicting dead websocket client")
			c.Close()
			delete(h.clients, c)
		}
	}
	h.updateGauge()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler returns an http.HandlerFunc that accepts client connections.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		h.mu.Lock()
		h.clients[conn] = struct{}{}
		h.updateGauge()
		h.mu.Unlock()

		// Drain reads until the peer goes away
		go func() {
			defer func() {
				h.mu.Lock()
				delete(h.clients, conn)
				h.updateGauge()
				h.mu.Unlock()
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
