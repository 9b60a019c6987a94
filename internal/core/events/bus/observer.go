package bus

import (
	"time"

	"github.com/zeusync/crowdsync/internal/core/observability/log"
)

var _ Observer = (*LogObserver)(nil)

// LogObserver reports failing deliveries, and deliveries slower than a
// threshold, to a logger.
type LogObserver struct {
	logger log.Log
	slow   time.Duration
}

// NewLogObserver logs deliveries taking longer than slow. A zero slow only
// reports failures.
func NewLogObserver(logger log.Log, slow time.Duration) *LogObserver {
	return &LogObserver{
		logger: logger.With(log.String("component", "events")),
		slow:   slow,
	}
}

func (o *LogObserver) OnDelivered(eventType string, handlers int, err error, took time.Duration) {
	switch {
	case err != nil:
		o.logger.Warn("Event handler failed",
			log.String("event", eventType),
			log.Int("handlers", handlers),
			log.Duration("took", took),
			log.Error(err),
		)
	case o.slow > 0 && took > o.slow:
		o.logger.Warn("Slow event delivery",
			log.String("event", eventType),
			log.Int("handlers", handlers),
			log.Duration("took", took),
		)
	}
}
