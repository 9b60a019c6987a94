package orca

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

var testParams = Params{TimeStep: 0.1, Epsilon: DefaultEpsilon, Plane: physics.PlaneXZ}

func newAgent(x, z, vx, vz float64) Agent {
	return Agent{
		Position:          physics.V3(x, 0, z),
		Velocity:          physics.V2(vx, vz),
		PreferredVelocity: physics.V2(vx, vz),
		Radius:            0.5,
		Mass:              1,
		MaxSpeed:          2,
		TimeHorizon:       10,
		MaxNeighbors:      10,
		ConsiderOthers:    true,
		BoundsValid:       true,
	}
}

func snapshotOf(plane physics.Plane, agents ...Agent) Snapshot {
	bodies := make([]Body, len(agents))
	for i := range agents {
		bodies[i] = agents[i].Body(plane)
	}
	return NewSnapshot(bodies)
}

func TestSolverStepWithoutNeighbors(t *testing.T) {
	a := newAgent(0, 0, 0, 0)
	a.PreferredVelocity = physics.V2(1, 0)
	a.Position.Y = 4

	s := NewSolver()
	s.Step(&a, nil, snapshotOf(testParams.Plane, a), nil, testParams)

	require.Equal(t, physics.V2(1, 0), a.Velocity)
	require.InDelta(t, 0.1, a.Position.X, 1e-12)
	require.Equal(t, 0.0, a.Position.Z)
	require.Equal(t, 4.0, a.Position.Y, "pinned axis is untouched")
	require.Equal(t, uint64(1), s.Stats().Agents)
}

func TestSolverBypass(t *testing.T) {
	neighbor := newAgent(1, 0, -1, 0)

	tests := []struct {
		name   string
		mutate func(a *Agent)
		want   physics.Vec2
	}{
		{
			name:   "avoidance disabled",
			mutate: func(a *Agent) { a.ConsiderOthers = false },
			want:   physics.V2(1, 0),
		},
		{
			name:   "no neighbors allowed",
			mutate: func(a *Agent) { a.MaxNeighbors = 0 },
			want:   physics.V2(1, 0),
		},
		{
			name: "external force damps preference",
			mutate: func(a *Agent) {
				a.ConsiderOthers = false
				a.ExternalForce = physics.V2(0, 3)
			},
			want: physics.V2(1, 0).Scale(ForceDamping).Add(physics.V2(0, 3)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAgent(0, 0, 1, 0)
			tt.mutate(&a)
			snap := snapshotOf(testParams.Plane, a, neighbor)

			s := NewSolver()
			s.Step(&a, []int{1}, snap, nil, testParams)
			require.Equal(t, tt.want, a.Velocity)
			require.Equal(t, uint64(0), s.Stats().Constraints)
		})
	}
}

func TestSolverSkipsInvalidBounds(t *testing.T) {
	a := newAgent(3, 3, 1, 1)
	a.BoundsValid = false
	before := a

	s := NewSolver()
	s.Step(&a, nil, snapshotOf(testParams.Plane, a), nil, testParams)
	require.Equal(t, before, a)
	require.Equal(t, uint64(0), s.Stats().Agents)
}

func TestSolverHeadOnSymmetric(t *testing.T) {
	a := newAgent(-5, 0, 1, 0)
	b := newAgent(5, 0, -1, 0)
	snap := snapshotOf(testParams.Plane, a, b)

	s := NewSolver()
	s.Step(&a, []int{1}, snap, nil, testParams)
	s.Step(&b, []int{0}, snap, nil, testParams)

	require.NotZero(t, a.Velocity.Y, "agents deflect sideways")
	require.Equal(t, a.Velocity.Neg(), b.Velocity)
	require.Equal(t, uint64(2), s.Stats().Constraints)
}

func TestSolverMassWeighting(t *testing.T) {
	light := newAgent(-5, 0, 1, 0)
	heavy := newAgent(5, 0, -1, 0)
	heavy.Mass = 3
	snap := snapshotOf(testParams.Plane, light, heavy)

	s := NewSolver()
	s.Step(&light, []int{1}, snap, nil, testParams)
	s.Step(&heavy, []int{0}, snap, nil, testParams)

	lightCorrection := light.Velocity.Sub(light.PreferredVelocity).Length()
	heavyCorrection := heavy.Velocity.Sub(heavy.PreferredVelocity).Length()
	require.Greater(t, lightCorrection, heavyCorrection)
}

func TestSolverExactOverlap(t *testing.T) {
	a := newAgent(2, 2, 1, 0)
	b := newAgent(2, 2, -1, 0)
	snap := snapshotOf(testParams.Plane, a, b)

	s := NewSolver()
	s.Step(&a, []int{1}, snap, nil, testParams)
	s.Step(&b, []int{0}, snap, nil, testParams)

	require.Greater(t, a.Velocity.X, 0.0)
	require.Less(t, b.Velocity.X, 0.0)
	require.NotEqual(t, a.PreferredVelocity, a.Velocity)
	require.LessOrEqual(t, a.Velocity.Length(), SpeedClampFactor*a.MaxSpeed+1e-9)
	require.LessOrEqual(t, b.Velocity.Length(), SpeedClampFactor*b.MaxSpeed+1e-9)
	require.Equal(t, uint64(2), s.Stats().Fallbacks)
}

func TestSolverSpeedBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 40

	agents := make([]Agent, n)
	for i := range agents {
		// A tight cluster so most pairs overlap.
		agents[i] = newAgent(rng.Float64(), rng.Float64(), rng.NormFloat64()*3, rng.NormFloat64()*3)
		agents[i].PreferredVelocity = physics.V2(rng.NormFloat64()*4, rng.NormFloat64()*4)
		agents[i].MaxSpeed = 0.5 + rng.Float64()*2
		agents[i].Mass = 0.5 + rng.Float64()*3
		agents[i].MaxNeighbors = n
	}
	snap := snapshotOf(testParams.Plane, agents...)

	neighbors := make([]int, 0, n)
	s := NewSolver()
	for i := range agents {
		neighbors = neighbors[:0]
		for j := 0; j < n; j++ {
			if j != i {
				neighbors = append(neighbors, j)
			}
		}
		v := s.ComputeVelocity(&agents[i], neighbors, snap, nil, testParams)
		require.LessOrEqual(t, v.Length(), SpeedClampFactor*agents[i].MaxSpeed+1e-9)
	}
	require.Equal(t, uint64(n), s.Stats().Agents)
}

func TestSolverReset(t *testing.T) {
	a := newAgent(0, 0, 1, 0)
	s := NewSolver()
	s.Step(&a, nil, snapshotOf(testParams.Plane, a), nil, testParams)
	require.NotZero(t, s.Stats().Agents)

	s.Reset()
	require.Equal(t, Stats{}, s.Stats())
}

func TestAgentValidate(t *testing.T) {
	a := newAgent(0, 0, 0, 0)
	require.NoError(t, a.Validate())

	a.Mass = 0
	require.ErrorIs(t, a.Validate(), ErrInvalidAgent)
}
