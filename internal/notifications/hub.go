package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"warden/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per member
	maxConnsPerMember = 4
	// Max total connections
	maxTotalConns = 1000
)

// Hub fans moderation events out to connected moderator feed clients.
// It listens for Redis pub/sub messages (via Notifier) and broadcasts them.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*websocket.Conn]struct{}
	totalConns int
}

// NewHub creates a new Hub instance for the moderator feed.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "moderator feed hub" }

// Register a connection for a given member. Fails when connection limits are exceeded.
func (h *Hub) Register(memberID string, conn *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return errors.New("server connection limit reached")
	}

	m, ok := h.conns[memberID]
	if !ok {
		m = make(map[*websocket.Conn]struct{})
		h.conns[memberID] = m
	}
	if len(m) >= maxConnsPerMember {
		return errors.New("member connection limit reached")
	}

	m[conn] = struct{}{}
	h.totalConns++
	observability.FeedConnections.Inc()
	return nil
}

// Unregister removes a connection.
func (h *Hub) Unregister(memberID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.conns[memberID]; ok {
		if _, exists := m[conn]; exists {
			delete(m, conn)
			h.totalConns--
			observability.FeedConnections.Dec()
		}
		if len(m) == 0 {
			delete(h.conns, memberID)
		}
	}
}

// Broadcast sends the message to every connected feed client. One member's
// dead connection must not abort delivery to the rest.
func (h *Hub) Broadcast(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.conns {
		for c := range conns {
			if err := c.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
				log.Printf("websocket write error: %v", err)
			}
		}
	}
}

// StartWiring connects the Notifier to this hub: incoming moderation events
// are forwarded to every connected client.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(payload string) {
		h.Broadcast(payload)
	})
}

// Shutdown closes all connections.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for memberID, conns := range h.conns {
		for c := range conns {
			_ = c.Close()
			observability.FeedConnections.Dec()
		}
		delete(h.conns, memberID)
	}
	h.totalConns = 0
	return nil
}
