package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wedding/cmd/identity"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("events: hub closed")

// Hub fans events out to connected feed clients.
//
// Subscribe/Unsubscribe are safe under concurrent Publish. Publish never blocks: a client
// whose queue is full misses the frame.
type Hub struct {
	log *slog.Logger
	now func() time.Time

	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		clients: make(map[string]*Client),
	}
}

// Subscribe registers c for future events.
func (h *Hub) Subscribe(c *Client) error {
	if c == nil || c.ID == "" {
		return identity.Invalid("events.Subscribe", "client id is required")
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Info("feed.subscribe", "client_id", c.ID, "clients", n)
	return nil
}

// Unsubscribe removes the client and then signals its shutdown.
func (h *Hub) Unsubscribe(id string) {
	if id == "" {
		return
	}
	h.mu.Lock()
	c := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	// Close after removal so a concurrent broadcaster never holds a closing client.
	if c != nil {
		c.Close()
		h.log.Info("feed.unsubscribe", "client_id", id)
	}
}

// Len returns the number of subscribed clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish wraps v in an Envelope and broadcasts it.
func (h *Hub) Publish(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", subject, err)
	}
	now := h.now()
	id, err := identity.NewULID(now)
	if err != nil {
		return err
	}
	h.Broadcast(Envelope{
		V:       EnvelopeVersion,
		Type:    subject,
		ID:      id,
		TS:      now,
		Payload: payload,
	})
	return nil
}

// Broadcast delivers env to every live client without blocking.
func (h *Hub) Broadcast(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case <-c.Done():
			continue
		default:
		}

		select {
		case c.Send <- env:
		default:
			h.log.Debug("feed.drop", "client_id", c.ID, "type", env.Type)
		}
	}
}

// Close disconnects every client and rejects new subscriptions. Idempotent.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	return nil
}

var _ Publisher = (*Hub)(nil)
