package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Hub owns the live connection table and routes events to connections.
// Presence lookups go through the Registry; the table only resolves ids to
// outbound queues.
type Hub struct {
	registry Registry
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub over the given registry. A nil registry selects the
// in-memory one; a nil logger disables logging.
func NewHub(registry Registry, logger *zerolog.Logger) *Hub {
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Hub{
		registry: registry,
		log:      log,
		clients:  make(map[string]*Client),
	}
}

// Registry exposes the presence registry.
func (h *Hub) Registry() Registry {
	return h.registry
}

// Attach makes a connection addressable by id.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// Detach removes a connection from the table and from the presence registry.
func (h *Hub) Detach(c *Client) (int64, bool) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	return h.registry.Unbind(c.ID)
}

// Bind registers an authenticated connection under its user.
func (h *Hub) Bind(c *Client, userID int64) {
	h.registry.Bind(c.ID, userID)
}

// Emit delivers an event to one connection. Unknown ids are ignored.
func (h *Hub) Emit(connID string, ev *Event) bool {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !c.Send(ev) {
		h.log.Warn().Str("conn_id", connID).Str("event", ev.Kind.String()).Msg("outbound queue full, event dropped")
		return false
	}
	return true
}

// EmitToUser fans an event out to every live connection of the user and
// returns how many connections accepted it. No connections is not an error.
func (h *Hub) EmitToUser(userID int64, ev *Event) int {
	delivered := 0
	for _, id := range h.registry.ConnectionsFor(userID) {
		if h.Emit(id, ev) {
			delivered++
		}
	}
	return delivered
}
