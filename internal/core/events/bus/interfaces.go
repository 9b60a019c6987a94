package bus

import "time"

// Event types published by the simulator.
const (
	EventStepCommitted = "crowd.step.committed"
	EventStepFailed    = "crowd.step.failed"
)

// Event is an immutable message transported by the Bus.
//
// Type selects handlers. Step is the simulation step the event refers to,
// zero when it has none. Data is an opaque payload for consumers and should
// be treated as read-only.
type Event struct {
	Type      string
	Source    string
	Step      uint64
	Timestamp time.Time
	Data      any
}

// NewEvent stamps an event with the current time.
func NewEvent(typ, src string, step uint64, data any) Event {
	return Event{Type: typ, Source: src, Step: step, Timestamp: time.Now(), Data: data}
}

// Handler is invoked per delivered event. Errors are joined and returned
// from Publish.
type Handler func(event Event) error

// Observer is notified about deliveries. Observers should return quickly.
type Observer interface {
	OnDelivered(eventType string, handlers int, err error, took time.Duration)
}

// Metrics is updated only while at least one observer is registered.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
