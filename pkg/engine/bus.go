package engine

import (
	"sort"
	"sync"
)

// EventBus manages event subscriptions and delivery.
type EventBus interface {
	// Subscribe registers a handler under id, replacing any previous one.
	Subscribe(id string, handler func(Event))

	// Unsubscribe removes the handler for id.
	Unsubscribe(id string)

	// Publish sends an event to every subscribed handler.
	Publish(event Event)
}

// SimpleEventBus delivers synchronously on the publishing goroutine, so every
// subscriber sees events in publish order. Handlers must not block.
type SimpleEventBus struct {
	mu       sync.RWMutex
	handlers map[string]func(Event)
}

// NewSimpleEventBus creates an empty bus.
func NewSimpleEventBus() *SimpleEventBus {
	return &SimpleEventBus{handlers: make(map[string]func(Event))}
}

// Subscribe registers a handler under id.
func (bus *SimpleEventBus) Subscribe(id string, handler func(Event)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[id] = handler
}

// Unsubscribe removes the handler for id.
func (bus *SimpleEventBus) Unsubscribe(id string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handlers, id)
}

// Publish calls every handler in subscriber id order. Handlers may
// subscribe or unsubscribe from inside a call.
func (bus *SimpleEventBus) Publish(event Event) {
	bus.mu.RLock()
	ids := make([]string, 0, len(bus.handlers))
	for id := range bus.handlers {
		ids = append(ids, id)
	}
	handlers := make([]func(Event), 0, len(ids))
	sort.Strings(ids)
	for _, id := range ids {
		handlers = append(handlers, bus.handlers[id])
	}
	bus.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Len returns the number of subscribers.
func (bus *SimpleEventBus) Len() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.handlers)
}

// NullEventBus is an event bus that does nothing (for testing or when events not needed).
type NullEventBus struct{}

// NewNullEventBus creates a new null event bus.
func NewNullEventBus() *NullEventBus {
	return &NullEventBus{}
}

// Subscribe does nothing.
func (bus *NullEventBus) Subscribe(id string, handler func(Event)) {}

// Unsubscribe does nothing.
func (bus *NullEventBus) Unsubscribe(id string) {}

// Publish does nothing.
func (bus *NullEventBus) Publish(event Event) {}
