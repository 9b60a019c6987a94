package orca

import "github.com/zeusync/crowdsync/internal/core/systems/physics"

const (
	// DefaultEpsilon is the threshold for near-parallel lines and near-zero
	// relative velocities.
	DefaultEpsilon = 1e-5

	// ForceDamping scales the preferred velocity of an agent that is being
	// pushed by an external force.
	ForceDamping = 0.1

	// SpeedClampFactor bounds the solved speed to a multiple of MaxSpeed so
	// deeply overlapping agents can separate without exploding.
	SpeedClampFactor = 5.0

	forceEpsilon = 1e-12
)

// Agent is the per-agent state owned and written by that agent's step only.
type Agent struct {
	Position          physics.Vec3
	Velocity          physics.Vec2
	PreferredVelocity physics.Vec2
	ExternalForce     physics.Vec2

	Radius      float64
	Mass        float64
	MaxSpeed    float64
	TimeHorizon float64

	MaxNeighbors   int
	ConsiderOthers bool
	BoundsValid    bool
}

// Body returns the snapshot entry for a.
func (a *Agent) Body(plane physics.Plane) Body {
	return Body{
		Position: plane.Project(a.Position),
		Velocity: a.Velocity,
		Radius:   a.Radius,
		Mass:     a.Mass,
	}
}

// Validate reports whether a can take part in avoidance.
func (a *Agent) Validate() error {
	if a.Radius <= 0 || a.Mass <= 0 || a.MaxSpeed <= 0 || a.TimeHorizon <= 0 {
		return ErrInvalidAgent
	}
	if a.MaxNeighbors < 0 {
		return ErrInvalidAgent
	}
	return nil
}

// Body is the read-only view of an agent published in a Snapshot.
type Body struct {
	Position physics.Vec2
	Velocity physics.Vec2
	Radius   float64
	Mass     float64
}

// Snapshot is a borrowed, read-only view over the bodies published at the
// start of a step. At returns copies so callers cannot write through it.
type Snapshot struct {
	bodies []Body
}

// NewSnapshot wraps bodies. The caller must not mutate bodies until every
// reader of the snapshot is done.
func NewSnapshot(bodies []Body) Snapshot {
	return Snapshot{bodies: bodies}
}

func (s Snapshot) Len() int { return len(s.bodies) }

func (s Snapshot) At(i int) Body { return s.bodies[i] }

// Params are the per-step simulation parameters.
type Params struct {
	TimeStep float64
	Epsilon  float64
	Plane    physics.Plane
}

func (p Params) epsilon() float64 {
	if p.Epsilon <= 0 {
		return DefaultEpsilon
	}
	return p.Epsilon
}
