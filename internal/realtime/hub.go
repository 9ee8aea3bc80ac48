// Package realtime fans out platform events to connected dashboard listeners.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/entregave/dispatch-backend/pkg/enums"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

const defaultSubscriberBuffer = 32

// Event is a realtime notification delivered to every listener.
type Event struct {
	Type      enums.EventType `json:"type"`
	Data      any             `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Broadcaster is the producer-side surface of the hub.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event)
}

// Hub tracks subscribers and delivers serialized events to each of them.
// Delivery is best-effort: a listener that cannot keep up misses events
// rather than blocking the producer.
type Hub struct {
	logg   *logger.Logger
	buffer int

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewHub builds an empty hub.
func NewHub(logg *logger.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		logg:   logg,
		buffer: buffer,
		subs:   make(map[chan []byte]struct{}),
	}
}

// Subscribe registers a new listener and returns its event channel.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Broadcast serializes the event once and offers it to every subscriber.
func (h *Hub) Broadcast(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if h.logg != nil {
			h.logg.Error(ctx, "marshal realtime event", err)
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
			// listener is saturated; drop the event for this one
		}
	}
}

// SubscriberCount returns the number of connected listeners.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
