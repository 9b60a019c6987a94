package orca

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

func body(x, y, vx, vy, radius, mass float64) Body {
	return Body{
		Position: physics.V2(x, y),
		Velocity: physics.V2(vx, vy),
		Radius:   radius,
		Mass:     mass,
	}
}

func TestYieldShare(t *testing.T) {
	require.Equal(t, 0.5, YieldShare(1, 1))
	require.Equal(t, 0.75, YieldShare(1, 3))
	require.Equal(t, 0.25, YieldShare(3, 1))
}

func TestBuildLine(t *testing.T) {
	t.Run("leg projection head on", func(t *testing.T) {
		self := body(-5, 0, 1, 0, 0.5, 1)
		other := body(5, 0, -1, 0, 0.5, 1)

		line, ok := BuildLine(self, 10, other, 0.1, DefaultEpsilon)
		require.True(t, ok)
		require.InDelta(t, 1.0, line.Direction.Length(), 1e-12)
		// The current velocity heads straight into the other agent.
		require.Greater(t, line.Violation(self.Velocity), 0.0)
	})

	t.Run("cap projection", func(t *testing.T) {
		// Relative velocity points away from the neighbor, past the cutoff.
		self := body(0, 0, -3, 0, 0.5, 1)
		other := body(4, 0, 0, 0, 0.5, 1)

		line, ok := BuildLine(self, 1, other, 0.1, DefaultEpsilon)
		require.True(t, ok)
		require.InDelta(t, 1.0, line.Direction.Length(), 1e-12)
		// Cap lines run perpendicular to w, which is along the x axis here.
		require.InDelta(t, 0.0, line.Direction.X, 1e-12)
		require.LessOrEqual(t, line.Violation(self.Velocity), 0.0)
	})

	t.Run("far and slow is satisfied", func(t *testing.T) {
		self := body(0, 0, 0.1, 0, 0.5, 1)
		other := body(50, 0, 0, 0, 0.5, 1)

		line, ok := BuildLine(self, 2, other, 0.1, DefaultEpsilon)
		require.True(t, ok)
		require.LessOrEqual(t, line.Violation(self.Velocity), 0.0)
	})

	t.Run("overlap uses the time step cutoff", func(t *testing.T) {
		self := body(0, 0, 1, 0, 0.5, 1)
		other := body(0, 0, -1, 0, 0.5, 1)

		line, ok := BuildLine(self, 2, other, 0.1, DefaultEpsilon)
		require.True(t, ok)
		require.InDelta(t, 0.0, line.Direction.X, 1e-12)
		require.InDelta(t, -1.0, line.Direction.Y, 1e-12)
		// u = (R/dt - |w|) * w^ = (10 - 2) * (1, 0); half of it is ours.
		require.InDelta(t, 5.0, line.Point.X, 1e-12)
		require.InDelta(t, 0.0, line.Point.Y, 1e-12)
	})

	t.Run("overlap without relative motion is degenerate", func(t *testing.T) {
		self := body(1, 1, 0.3, 0.3, 0.5, 1)
		other := body(1, 1, 0.3, 0.3, 0.5, 1)

		_, ok := BuildLine(self, 2, other, 0.1, DefaultEpsilon)
		require.False(t, ok)
	})

	t.Run("equal masses mirror", func(t *testing.T) {
		a := body(-5, 0, 1, 0, 0.5, 1)
		b := body(5, 0, -1, 0, 0.5, 1)

		la, ok := BuildLine(a, 10, b, 0.1, DefaultEpsilon)
		require.True(t, ok)
		lb, ok := BuildLine(b, 10, a, 0.1, DefaultEpsilon)
		require.True(t, ok)

		require.Equal(t, la.Direction.Neg(), lb.Direction)
		require.Equal(t, la.Point.Neg(), lb.Point)
	})

	t.Run("lighter agent yields more", func(t *testing.T) {
		light := body(-5, 0, 1, 0, 0.5, 1)
		heavy := body(5, 0, -1, 0, 0.5, 3)

		ll, ok := BuildLine(light, 10, heavy, 0.1, DefaultEpsilon)
		require.True(t, ok)
		lh, ok := BuildLine(heavy, 10, light, 0.1, DefaultEpsilon)
		require.True(t, ok)

		shiftLight := ll.Point.Sub(light.Velocity).Length()
		shiftHeavy := lh.Point.Sub(heavy.Velocity).Length()
		require.Greater(t, shiftLight, shiftHeavy)
		require.InDelta(t, 3.0, shiftLight/shiftHeavy, 1e-9)
	})
}

func TestBuildLineDirectionIsUnit(t *testing.T) {
	for i := 0; i < 64; i++ {
		angle := float64(i) * math.Pi / 32
		other := body(3*math.Cos(angle), 3*math.Sin(angle), 0, 0, 0.5, 1)
		self := body(0, 0, math.Cos(angle+0.3), math.Sin(angle+0.3), 0.5, 1)

		line, ok := BuildLine(self, 4, other, 0.1, DefaultEpsilon)
		require.True(t, ok)
		require.InDelta(t, 1.0, line.Direction.Length(), 1e-9)
	}
}
