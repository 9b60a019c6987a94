package crowd

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zeusync/crowdsync/internal/core/events/bus"
	"github.com/zeusync/crowdsync/internal/core/observability/log"
	"github.com/zeusync/crowdsync/internal/core/systems"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

var _ systems.System = (*AvoidanceSystem)(nil)

var errNotRunning = errors.New("avoidance system is not running")

// AvoidanceSystem drives a Simulation from a frame loop.
//
// With pipelining enabled each Update commits the step scheduled by the
// previous Update and schedules the next one, so the solve overlaps with
// whatever the caller does between frames. Otherwise Update blocks until
// its own step is committed.
//
// Every committed step is published on the event bus, if one is given, as
// bus.EventStepCommitted with its StepResult as data.
type AvoidanceSystem struct {
	mu       sync.Mutex
	sim      *Simulation
	log      log.Log
	events   *bus.Bus
	state    systems.StateIdentity
	enabled  bool
	pipeline bool
	pending  *StepHandle
	target   *physics.Vec2
	goals    map[string]physics.Vec2
	arrive   float64
	metrics  systems.Metrics
	last     StepResult
}

func NewAvoidanceSystem(sim *Simulation, logger log.Log, events *bus.Bus, pipeline bool) *AvoidanceSystem {
	if logger == nil {
		logger = log.NewNop()
	}
	return &AvoidanceSystem{
		sim:      sim,
		log:      logger.With(log.String("system", "avoidance")),
		events:   events,
		enabled:  true,
		pipeline: pipeline,
	}
}

func (s *AvoidanceSystem) Name() string { return "avoidance" }

func (s *AvoidanceSystem) Simulation() *Simulation { return s.sim }

// SetTarget makes every agent seek target before each step. Agents within
// arrive of it stop.
func (s *AvoidanceSystem) SetTarget(target physics.Vec2, arrive float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = &target
	s.arrive = arrive
}

// SetGoals gives agents individual goals. A shared target set with
// SetTarget takes precedence.
func (s *AvoidanceSystem) SetGoals(goals map[string]physics.Vec2, arrive float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = goals
	s.arrive = arrive
}

func (s *AvoidanceSystem) ClearTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = nil
	s.goals = nil
}

func (s *AvoidanceSystem) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = systems.StateRunning
	if !s.enabled {
		s.state = systems.StatePaused
	}
	s.log.Info("avoidance system initialized",
		log.Int("agents", s.sim.Len()),
		log.String("plane", s.sim.Options().Plane.String()),
		log.Bool("pipeline", s.pipeline),
	)
	return nil
}

// Shutdown commits any step still in flight.
func (s *AvoidanceSystem) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		res, err := s.pending.Complete()
		s.pending = nil
		if err != nil {
			s.log.Warn("pending step lost on shutdown", log.Error(err))
		} else {
			s.committed(res)
		}
	}
	s.state = systems.StateShutdown
	s.log.Info("avoidance system stopped", log.Uint64("steps", s.sim.Steps()))
	return nil
}

func (s *AvoidanceSystem) Update(deltaTime float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case systems.StateRunning:
	case systems.StatePaused:
		return nil
	default:
		return errNotRunning
	}

	start := time.Now()
	err := s.update(deltaTime)
	s.metrics.Record(time.Since(start), uint64(s.last.Agents), err)
	if err != nil {
		s.log.Error("avoidance update failed", log.Error(err))
		s.publish(bus.NewEvent(bus.EventStepFailed, s.Name(), s.last.Step+1, err))
	}
	return err
}

func (s *AvoidanceSystem) update(deltaTime float64) error {
	if s.pending != nil {
		res, err := s.pending.Complete()
		s.pending = nil
		if err != nil {
			return err
		}
		s.committed(res)
	}

	switch {
	case s.target != nil:
		s.sim.SeekAll(*s.target, s.arrive)
	case len(s.goals) > 0:
		s.sim.SeekGoals(s.goals, s.arrive)
	}

	if s.pipeline {
		h, err := s.sim.Schedule(deltaTime)
		if err != nil {
			return err
		}
		s.pending = h
		return nil
	}

	res, err := s.sim.Step(deltaTime)
	if err != nil {
		return err
	}
	s.committed(res)
	return nil
}

func (s *AvoidanceSystem) committed(res StepResult) {
	s.last = res
	s.publish(bus.NewEvent(bus.EventStepCommitted, s.Name(), res.Step, res))
}

func (s *AvoidanceSystem) publish(event bus.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(event); err != nil {
		s.log.Warn("event handler failed", log.String("event", event.Type), log.Error(err))
	}
}

// LastResult is the summary of the most recently committed step.
func (s *AvoidanceSystem) LastResult() StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *AvoidanceSystem) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *AvoidanceSystem) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	switch {
	case s.state == systems.StateRunning && !enabled:
		s.state = systems.StatePaused
	case s.state == systems.StatePaused && enabled:
		s.state = systems.StateRunning
	}
}

func (s *AvoidanceSystem) GetState() systems.StateIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *AvoidanceSystem) GetMetrics() systems.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}
