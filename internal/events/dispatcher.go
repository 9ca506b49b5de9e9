package events

import (
	"context"
	"sync"
)

// Handler consumes a published event. Handler failures are isolated: one
// failing subscriber never prevents delivery to the others, and never
// escalates to the publishing mutation.
type Handler func(context.Context, Event) error

// Dispatcher is the seam between the ticket lifecycle and its observers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(kind Kind, handler Handler)
}

type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[Kind][]Handler
}

// NewInMemoryDispatcher creates a synchronous in-process dispatcher.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{listeners: make(map[Kind][]Handler)}
}

func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]Handler{}, d.listeners[event.Kind]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *inMemoryDispatcher) Subscribe(kind Kind, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[kind] = append(d.listeners[kind], handler)
}
