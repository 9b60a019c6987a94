package bus

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription is a registered handler. Cancel is safe to call repeatedly.
type Subscription struct {
	id        string
	eventType string
	bus       *Bus
}

func (s *Subscription) ID() string        { return s.id }
func (s *Subscription) EventType() string { return s.eventType }

func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.unsubscribe(s)
}

// IsActive reports whether the subscription is still registered.
func (s *Subscription) IsActive() bool {
	if s == nil || s.bus == nil {
		return false
	}
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	_, ok := s.bus.handlers[s.eventType][s.id]
	return ok
}

// Bus is a synchronous in-process pub/sub bus keyed by event type.
// Handlers run in the publisher's goroutine, in no particular order.
type Bus struct {
	mu        sync.RWMutex
	handlers  map[string]map[string]Handler
	metrics   Metrics
	observers map[Observer]struct{}
}

func New() *Bus {
	return &Bus{
		handlers:  make(map[string]map[string]Handler),
		observers: make(map[Observer]struct{}),
	}
}

func (b *Bus) Subscribe(eventType string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	sub := &Subscription{id: uuid.NewString(), eventType: eventType, bus: b}
	b.handlers[eventType][sub.id] = handler
	return sub
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.handlers[s.eventType]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(b.handlers, s.eventType)
		}
	}
}

// AddObserver registers obs. Metrics are collected from then on.
func (b *Bus) AddObserver(obs Observer) {
	b.mu.Lock()
	b.observers[obs] = struct{}{}
	b.mu.Unlock()
}

func (b *Bus) GetMetrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

// Publish delivers event to every handler subscribed to its type.
func (b *Bus) Publish(event Event) error {
	start := time.Now()

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type]))
	for _, h := range b.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	observers := make([]Observer, 0, len(b.observers))
	for obs := range b.observers {
		observers = append(observers, obs)
	}
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(event); err != nil {
			errs = append(errs, err)
		}
	}
	all := errors.Join(errs...)

	if len(observers) > 0 {
		took := time.Since(start)
		for _, obs := range observers {
			obs.OnDelivered(event.Type, len(handlers), all, took)
		}

		b.mu.Lock()
		b.metrics.Published++
		b.metrics.DeliveredHandlers += uint64(len(handlers))
		if all != nil {
			b.metrics.Errors++
		}
		var subs uint64
		for _, m := range b.handlers {
			subs += uint64(len(m))
		}
		b.metrics.SubscribersActive = subs
		b.mu.Unlock()
	}
	return all
}
