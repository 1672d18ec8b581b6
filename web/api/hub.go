package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hochfrequenz/ci-relay/internal/notify"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are skipped for it.
const subscriberBuffer = 16

// Hub is the live-subscriber set shared by the SSE and WebSocket endpoints.
// Broadcast snapshots the set before iterating, so a concurrent disconnect
// can never corrupt an in-flight delivery.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan notify.Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan notify.Event)}
}

// Subscribe registers a new live subscriber and returns its id and event
// channel. The caller must Unsubscribe when the connection closes.
func (h *Hub) Subscribe() (string, <-chan notify.Event) {
	id := uuid.NewString()
	ch := make(chan notify.Event, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber. The channel is left open: a broadcast
// racing the disconnect may still hold it in its snapshot, and readers exit
// through their request context instead.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subscribers, id)
	h.mu.Unlock()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast delivers an event to every current subscriber. A subscriber
// whose buffer is full just misses this event; delivery to the rest is
// unaffected.
func (h *Hub) Broadcast(ev notify.Event) {
	h.mu.RLock()
	channels := make([]chan notify.Event, 0, len(h.subscribers))
	for _, ch := range h.subscribers {
		channels = append(channels, ch)
	}
	h.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- ev:
		default:
		}
	}
}
