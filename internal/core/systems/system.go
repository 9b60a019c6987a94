package systems

import (
	"context"
	"time"
)

// System represents a simulation processor driven by the frame loop.
type System interface {
	// Identity

	Name() string

	// Lifecycle

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// Execution

	Update(deltaTime float64) error

	// State management

	IsEnabled() bool
	SetEnabled(bool)
	GetState() StateIdentity

	// Performance monitoring

	GetMetrics() Metrics
}

// StateIdentity represents the current state of a system
type StateIdentity uint8

const (
	StateUninitialized StateIdentity = iota
	StateRunning
	StatePaused
	StateShutdown
)

func (s StateIdentity) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	MinExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
	LastExecutionTime    time.Time
	EntitiesProcessed    uint64
}

// Record folds one execution into m.
func (m *Metrics) Record(took time.Duration, entities uint64, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += took
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	if took > m.MaxExecutionTime {
		m.MaxExecutionTime = took
	}
	if m.MinExecutionTime == 0 || took < m.MinExecutionTime {
		m.MinExecutionTime = took
	}
	m.EntitiesProcessed += entities
	m.LastExecutionTime = time.Now()
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}
