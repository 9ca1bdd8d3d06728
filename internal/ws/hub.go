package ws

import (
	"encoding/json"
	"sync"
)

// Client represents a single WebSocket connection bound to a checkout
// session.
type Client struct {
	SessionID string
	Send      chan []byte
	Hub       *Hub
	mu        sync.Mutex
	closed    bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

// StatusEvent is pushed to the checkout page when a charge changes state,
// so the page does not depend on its own polling.
type StatusEvent struct {
	Type        string `json:"type"` // paid, expired, awaiting_tax
	ChargeID    uint   `json:"charge_id"`
	Leg         string `json:"leg"`
	AmountCents int64  `json:"amount_cents"`
}

// Hub maintains the set of active checkout connections keyed by session.
type Hub struct {
	mu        sync.RWMutex
	bySession map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{bySession: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	if h.bySession[c.SessionID] == nil {
		h.bySession[c.SessionID] = make(map[*Client]struct{})
	}
	h.bySession[c.SessionID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.bySession[c.SessionID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.bySession, c.SessionID)
		}
	}
}

// NotifySession pushes an event to every connection of the session.
// Non-blocking: slow consumers drop events, the status endpoint is the
// catch-up path.
func (h *Hub) NotifySession(sessionID string, event StatusEvent) {
	data, _ := json.Marshal(event)
	h.mu.RLock()
	m := h.bySession[sessionID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}
