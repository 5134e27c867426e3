package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventSchemaChanged  EventType = "schema.changed"
	EventOrderCommitted EventType = "order.committed"
)

// Event is the payload streamed to a tenant's connected clients.
type Event struct {
	Event       EventType `json:"event"`
	Action      string    `json:"action,omitempty"`
	FieldKey    string    `json:"fieldKey,omitempty"`
	OrderID     string    `json:"orderId,omitempty"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	OrderType   string    `json:"orderType,omitempty"`
	Total       string    `json:"total,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Client represents a connected SSE client of one tenant.
type Client struct {
	ID       string
	TenantID string
	Events   chan []byte
}

// Hub manages SSE client connections and per-tenant broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client and returns it for streaming.
func (h *Hub) Register(clientID, tenantID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:       clientID,
		TenantID: tenantID,
		Events:   make(chan []byte, 64),
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Str("tenant_id", tenantID).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Broadcast sends an event to every client of tenantID.
// Non-blocking: drops message if client buffer is full.
func (h *Hub) Broadcast(tenantID string, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.TenantID != tenantID {
			continue
		}
		select {
		case c.Events <- data:
		default:
			log.Warn().Str("client_id", c.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EventName extracts the event type from an encoded Event, defaulting to
// "message".
func EventName(data []byte) string {
	var head struct {
		Event EventType `json:"event"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Event == "" {
		return "message"
	}
	return string(head.Event)
}
