// Package events carries domain events emitted after successful state
// transitions. Delivery is fire-and-forget: subscribers run on their own
// goroutine and can never fail the operation that published the event.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	UserRegistered = "user.registered"
	UserCreated    = "user.created"
	UserUpdated    = "user.updated"
	UserDeleted    = "user.deleted"
	UserRestored   = "user.restored"
	RoleCreated    = "role.created"
	RoleUpdated    = "role.updated"
	RoleDeleted    = "role.deleted"
	RoleRestored   = "role.restored"
)

type Event struct {
	Name      string
	ActorID   string
	SubjectID string
	Detail    map[string]string
	At        time.Time
}

type HandlerFunc func(ctx context.Context, e Event)

// Bus is an in-process publisher. Subscribe with an event name, or "*" to
// receive everything.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	wg       sync.WaitGroup
	logger   *logrus.Logger
}

func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger,
	}
}

func (b *Bus) Subscribe(name string, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish dispatches the event to every matching subscriber, each on its
// own goroutine. Publication is detached from the caller's request: the
// handler context is independent so late subscribers are not cancelled
// when the HTTP request finishes.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := append([]HandlerFunc(nil), b.handlers[e.Name]...)
	handlers = append(handlers, b.handlers["*"]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					b.logger.WithField("event", e.Name).WithField("panic", rec).Error("Event handler panicked")
				}
			}()
			h(context.Background(), e)
		}()
	}
}

// Wait blocks until all in-flight handlers finish. Used during shutdown
// and by tests.
func (b *Bus) Wait() {
	b.wg.Wait()
}
