package orca

import "github.com/zeusync/crowdsync/internal/core/systems/physics"

// Stats counts what a Solver did since its last Reset.
type Stats struct {
	Agents      uint64 // agents stepped
	Constraints uint64 // neighbor lines built
	Degenerate  uint64 // neighbors skipped without a line
	Fallbacks   uint64 // LinearProgram3 invocations
	Relaxed     uint64 // inner fallback solves that kept the previous result
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Agents += o.Agents
	s.Constraints += o.Constraints
	s.Degenerate += o.Degenerate
	s.Fallbacks += o.Fallbacks
	s.Relaxed += o.Relaxed
}

// Solver steps agents one at a time and owns the scratch buffers for it.
// A Solver is not safe for concurrent use; give each worker its own.
type Solver struct {
	lines []Line
	proj  []Line
	stats Stats
}

func NewSolver() *Solver {
	return &Solver{
		lines: make([]Line, 0, 16),
		proj:  make([]Line, 0, 16),
	}
}

// Stats returns the counters accumulated since the last Reset.
func (s *Solver) Stats() Stats { return s.stats }

// Reset clears the counters and keeps the buffers.
func (s *Solver) Reset() {
	s.stats = Stats{}
	s.lines = s.lines[:0]
	s.proj = s.proj[:0]
}

// Step advances a by one time step. Neighbor data is read from snap only,
// and a is the only state written. obstacles, when present, lead the
// constraint sequence and are never relaxed by the fallback.
func (s *Solver) Step(a *Agent, neighbors []int, snap Snapshot, obstacles []Line, p Params) {
	if !a.BoundsValid {
		return
	}

	a.Velocity = s.ComputeVelocity(a, neighbors, snap, obstacles, p)

	pos := p.Plane.Project(a.Position)
	pos = pos.Add(a.Velocity.Scale(p.TimeStep))
	a.Position = p.Plane.Embed(pos, a.Position)
}

// ComputeVelocity returns the new velocity of a, external force included,
// without writing to a.
func (s *Solver) ComputeVelocity(a *Agent, neighbors []int, snap Snapshot, obstacles []Line, p Params) physics.Vec2 {
	s.stats.Agents++

	preferred := a.PreferredVelocity
	if a.ExternalForce.LengthSq() > forceEpsilon {
		preferred = preferred.Scale(ForceDamping)
	}

	if a.MaxNeighbors == 0 || !a.ConsiderOthers {
		return preferred.Add(a.ExternalForce)
	}

	epsilon := p.epsilon()
	self := a.Body(p.Plane)

	s.lines = append(s.lines[:0], obstacles...)
	numObstLines := len(obstacles)

	if len(neighbors) > a.MaxNeighbors {
		neighbors = neighbors[:a.MaxNeighbors]
	}
	for _, idx := range neighbors {
		line, ok := BuildLine(self, a.TimeHorizon, snap.At(idx), p.TimeStep, epsilon)
		if !ok {
			s.stats.Degenerate++
			continue
		}
		s.stats.Constraints++
		s.lines = append(s.lines, line)
	}

	result, fail := LinearProgram2(s.lines, a.MaxSpeed, preferred, false, epsilon)
	if fail < len(s.lines) {
		var relaxed int
		s.stats.Fallbacks++
		result, relaxed, s.proj = LinearProgram3(s.lines, numObstLines, fail, a.MaxSpeed, result, epsilon, s.proj)
		s.stats.Relaxed += uint64(relaxed)
	}

	result = result.ClampLength(SpeedClampFactor * a.MaxSpeed)

	return result.Add(a.ExternalForce)
}
