package client

import (
	"sync"

	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/notification"
)

type (
	// Event is anything published on the Bus.
	Event interface{}

	// NewMessagesEvent announces messages a poller has not seen before,
	// in ascending timestamp order. CourseTitle names the course so
	// subscribers can render the announcement without another lookup;
	// it is empty if the title could not be resolved.
	NewMessagesEvent struct {
		CourseID    int
		CourseTitle string
		Messages    []message.Message
	}

	// NotificationsEvent announces the latest notification state; New
	// holds only the unseen ones, oldest first.
	NotificationsEvent struct {
		New         []notification.Notification
		All         []notification.Notification
		UnreadCount int
	}

	// Handler receives published events. Handlers run synchronously on
	// the publisher's goroutine, so publication order is delivery order.
	Handler func(Event)
)

// Bus is a small synchronous pub/sub hub. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe func.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers evt to every subscriber.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
