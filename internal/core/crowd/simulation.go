package crowd

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/crowdsync/internal/core/observability/log"
	"github.com/zeusync/crowdsync/internal/core/orca"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
	"github.com/zeusync/crowdsync/pkg/concurrent"
	"github.com/zeusync/crowdsync/pkg/generic"
)

const defaultBatchSize = 64

// Options configures a Simulation.
type Options struct {
	Plane        physics.Plane
	Epsilon      float64
	Workers      int // <= 0 means GOMAXPROCS
	BatchSize    int // agents per work item
	NeighborDist float64
	CellSize     float64
}

// DefaultOptions returns Options suited to agents of about unit size.
func DefaultOptions() Options {
	return Options{
		Plane:        physics.PlaneXZ,
		Epsilon:      orca.DefaultEpsilon,
		BatchSize:    defaultBatchSize,
		NeighborDist: 10,
		CellSize:     10,
	}
}

// AgentView is a read-only copy of an agent's committed state.
type AgentView struct {
	ID       string
	Position physics.Vec3
	Velocity physics.Vec2
	Radius   float64
}

// StepResult summarises one committed step.
type StepResult struct {
	Step      uint64
	DeltaTime float64
	Agents    int
	Stats     orca.Stats
	Duration  time.Duration
}

// Simulation owns the agent population and dispatches avoidance steps.
//
// Agent state is double buffered: a scheduled step reads a snapshot of the
// committed state and writes into a separate buffer that becomes visible on
// completion. Mutations and new steps force completion of a pending step
// first, so no agent ever observes a neighbor's in-progress update.
type Simulation struct {
	mu      sync.Mutex
	opts    Options
	log     log.Log
	finder  NeighborFinder
	solvers *generic.Pool[*orca.Solver]

	ids    []string
	index  map[string]int
	agents []orca.Agent

	// Owned by the pending step until it completes.
	next      []orca.Agent
	bodies    []orca.Body
	neighbors [][]int

	pending *StepHandle
	steps   uint64
	elapsed float64
}

// New creates an empty simulation. A nil finder selects a GridFinder built
// from opts.
func New(opts Options, finder NeighborFinder, logger log.Log) *Simulation {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = orca.DefaultEpsilon
	}
	if finder == nil {
		finder = NewGridFinder(opts.CellSize, opts.NeighborDist)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Simulation{
		opts:   opts,
		log:    logger.With(log.String("system", "crowd")),
		finder: finder,
		solvers: generic.NewHotPool(
			orca.NewSolver,
			func(s *orca.Solver) { s.Reset() },
			hotSolvers(opts.Workers),
		),
		index: make(map[string]int),
	}
	if grid, ok := finder.(*GridFinder); ok {
		s.log.Debug("neighbor grid",
			log.Float64("cell_size", grid.CellSize()),
			log.Float64("neighbor_dist", opts.NeighborDist),
		)
	}
	return s
}

func hotSolvers(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}

// Options returns the options the simulation was built with.
func (s *Simulation) Options() Options { return s.opts }

// AddAgent registers a and returns its id. Agents taking part in avoidance
// must have positive radius, mass, max speed and time horizon.
func (s *Simulation) AddAgent(a orca.Agent) (string, error) {
	if a.BoundsValid {
		if err := a.Validate(); err != nil {
			return "", fmt.Errorf("add agent: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked()

	id := uuid.New().String()
	s.index[id] = len(s.agents)
	s.ids = append(s.ids, id)
	s.agents = append(s.agents, a)
	return id, nil
}

// RemoveAgent deletes an agent. Indices of other agents may change.
func (s *Simulation) RemoveAgent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}

	last := len(s.agents) - 1
	if i != last {
		s.agents[i] = s.agents[last]
		s.ids[i] = s.ids[last]
		s.index[s.ids[i]] = i
	}
	s.agents = s.agents[:last]
	s.ids = s.ids[:last]
	delete(s.index, id)
	return nil
}

// Agent returns a copy of the committed state of an agent.
func (s *Simulation) Agent(id string) (orca.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return orca.Agent{}, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return s.agents[i], nil
}

// Update mutates an agent between steps.
func (s *Simulation) Update(id string, fn func(a *orca.Agent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	fn(&s.agents[i])
	return nil
}

func (s *Simulation) SetPreferredVelocity(id string, v physics.Vec2) error {
	return s.Update(id, func(a *orca.Agent) { a.PreferredVelocity = v })
}

// SetExternalForce replaces the sum of exogenous pushes on an agent.
func (s *Simulation) SetExternalForce(id string, f physics.Vec2) error {
	return s.Update(id, func(a *orca.Agent) { a.ExternalForce = f })
}

// Len is the number of agents.
func (s *Simulation) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.agents)
}

// Steps is the number of committed steps.
func (s *Simulation) Steps() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

// Elapsed is the simulated time of all committed steps.
func (s *Simulation) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Views appends the committed state of every agent to dst.
func (s *Simulation) Views(dst []AgentView) []AgentView {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst = dst[:0]
	for i := range s.agents {
		a := &s.agents[i]
		dst = append(dst, AgentView{
			ID:       s.ids[i],
			Position: a.Position,
			Velocity: a.Velocity,
			Radius:   a.Radius,
		})
	}
	return dst
}

// Checksum fingerprints the committed positions and velocities. Equal
// populations stepped with equal inputs produce equal checksums regardless
// of worker count.
func (s *Simulation) Checksum() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := xxhash.New()
	var buf [8]byte
	write := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}
	for i := range s.agents {
		a := &s.agents[i]
		write(a.Position.X)
		write(a.Position.Y)
		write(a.Position.Z)
		write(a.Velocity.X)
		write(a.Velocity.Y)
	}
	return d.Sum64()
}

// Step schedules a step and blocks until it is committed.
func (s *Simulation) Step(dt float64) (StepResult, error) {
	h, err := s.Schedule(dt)
	if err != nil {
		return StepResult{}, err
	}
	return h.Complete()
}

// Flush commits a pending step, if any.
func (s *Simulation) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked()
}

// Schedule publishes the snapshot for a step of dt and starts computing it
// in the background. A step still pending from before is committed first.
func (s *Simulation) Schedule(dt float64) (*StepHandle, error) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeStep, dt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked()

	n := len(s.agents)
	s.next = append(s.next[:0], s.agents...)

	if cap(s.bodies) < n {
		s.bodies = make([]orca.Body, n)
	}
	s.bodies = s.bodies[:n]
	for i := range s.agents {
		s.bodies[i] = s.agents[i].Body(s.opts.Plane)
	}

	for len(s.neighbors) < n {
		s.neighbors = append(s.neighbors, nil)
	}
	s.neighbors = s.neighbors[:n]

	h := &StepHandle{
		sim:  s,
		step: s.steps + 1,
		dt:   dt,
	}
	job := stepJob{
		params: orca.Params{
			TimeStep: dt,
			Epsilon:  s.opts.Epsilon,
			Plane:    s.opts.Plane,
		},
		workers:   s.opts.Workers,
		batchSize: s.opts.BatchSize,
		finder:    s.finder,
		solvers:   s.solvers,
		next:      s.next,
		bodies:    s.bodies,
		neighbors: s.neighbors,
	}
	if n == 0 {
		h.job = concurrent.Completed()
	} else {
		h.job = concurrent.Go(func() {
			start := time.Now()
			h.stats = job.run()
			h.took = time.Since(start)
		})
	}

	s.pending = h
	return h, nil
}

func (s *Simulation) completeLocked() {
	if s.pending != nil {
		s.pending.commitLocked()
	}
}

func (s *Simulation) logStep(r StepResult) {
	fields := []log.Field{
		log.Uint64("step", r.Step),
		log.Int("agents", r.Agents),
		log.Uint64("constraints", r.Stats.Constraints),
		log.Uint64("degenerate", r.Stats.Degenerate),
		log.Uint64("fallbacks", r.Stats.Fallbacks),
		log.Duration("took", r.Duration),
	}
	s.log.Debug("step committed", fields...)

	if r.Stats.Relaxed > 0 {
		s.log.Debug("fallback kept previous velocity",
			log.Uint64("step", r.Step),
			log.Uint64("relaxed", r.Stats.Relaxed),
		)
	}
}

// stepJob is everything a background step touches. Workers read bodies and
// write next[i] and neighbors[i] for their own indices only.
type stepJob struct {
	params    orca.Params
	workers   int
	batchSize int
	finder    NeighborFinder
	solvers   *generic.Pool[*orca.Solver]
	next      []orca.Agent
	bodies    []orca.Body
	neighbors [][]int
}

func (j stepJob) run() orca.Stats {
	n := len(j.next)
	j.finder.Prepare(j.bodies)

	concurrent.ParallelFor(n, j.batchSize, j.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			a := &j.next[i]
			if !a.BoundsValid || !a.ConsiderOthers || a.MaxNeighbors == 0 {
				j.neighbors[i] = j.neighbors[i][:0]
				continue
			}
			j.neighbors[i] = j.finder.Neighbors(i, a.MaxNeighbors, j.neighbors[i])
		}
	})

	snap := orca.NewSnapshot(j.bodies)
	var (
		mu    sync.Mutex
		total orca.Stats
	)
	concurrent.ParallelFor(n, j.batchSize, j.workers, func(lo, hi int) {
		solver := j.solvers.Get()
		for i := lo; i < hi; i++ {
			solver.Step(&j.next[i], j.neighbors[i], snap, nil, j.params)
		}
		stats := solver.Stats()
		j.solvers.Put(solver)

		mu.Lock()
		total.Add(stats)
		mu.Unlock()
	})

	return total
}

// StepHandle tracks a scheduled step.
type StepHandle struct {
	sim  *Simulation
	job  *concurrent.Handle
	step uint64
	dt   float64

	// Written by the job before it signals completion.
	stats orca.Stats
	took  time.Duration

	result    StepResult
	committed bool
	discarded bool
}

// IsCompleted reports whether the computation has finished. It never blocks
// and does not commit the results.
func (h *StepHandle) IsCompleted() bool {
	return h.job.IsCompleted()
}

// Complete blocks until the step has finished, commits it and returns its
// summary. Calling it again returns the same summary.
func (h *StepHandle) Complete() (StepResult, error) {
	h.sim.mu.Lock()
	defer h.sim.mu.Unlock()

	if h.discarded {
		return StepResult{}, ErrStepDiscarded
	}
	h.commitLocked()
	return h.result, nil
}

// Discard waits for the computation to finish and drops its results. The
// committed state stays as it was before the step was scheduled.
func (h *StepHandle) Discard() {
	h.sim.mu.Lock()
	defer h.sim.mu.Unlock()

	if h.committed || h.discarded {
		return
	}
	h.job.Wait()
	h.discarded = true
	if h.sim.pending == h {
		h.sim.pending = nil
	}
}

func (h *StepHandle) commitLocked() {
	if h.committed || h.discarded {
		return
	}
	h.job.Wait()

	s := h.sim
	s.agents, s.next = s.next, s.agents
	s.steps++
	s.elapsed += h.dt
	s.pending = nil

	h.committed = true
	h.result = StepResult{
		Step:      h.step,
		DeltaTime: h.dt,
		Agents:    len(s.agents),
		Stats:     h.stats,
		Duration:  h.took,
	}
	s.logStep(h.result)
}
