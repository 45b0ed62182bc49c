// Package events provides the host runtime event surface. The host publishes
// lifecycle events; interested components subscribe by event type. Publishing
// never blocks: a subscriber that cannot keep up drops events.
package events

import (
	"sync"
	"time"
)

// Type identifies a host lifecycle event.
type Type string

const (
	// TypeMessageReceived is published once per inbound message.
	TypeMessageReceived Type = "message.received"
)

// Event is a host lifecycle event with an opaque payload.
type Event struct {
	Type      Type
	Timestamp time.Time
	Payload   interface{}
}

// Hub fans events out to subscribers by type.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[Type]map[uint64]chan Event
	nextID      uint64
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[Type]map[uint64]chan Event),
	}
}

// Subscribe registers interest in an event type. The returned cancel function
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(eventType Type, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.nextID++
	subID := h.nextID
	if _, exists := h.subscribers[eventType]; !exists {
		h.subscribers[eventType] = make(map[uint64]chan Event)
	}
	h.subscribers[eventType][subID] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[eventType]
		if !ok {
			return
		}
		sub, exists := subs[subID]
		if !exists {
			return
		}
		delete(subs, subID)
		if len(subs) == 0 {
			delete(h.subscribers, eventType)
		}
		close(sub)
	}

	return ch, cancel
}

// Publish delivers an event to every subscriber of its type without blocking.
func (h *Hub) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	h.mu.RLock()
	subs := h.subscribers[evt.Type]
	for _, sub := range subs {
		select {
		case sub <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
