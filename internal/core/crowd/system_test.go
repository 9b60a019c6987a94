package crowd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/crowdsync/internal/core/events/bus"
	"github.com/zeusync/crowdsync/internal/core/systems"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

func TestAvoidanceSystemBlocking(t *testing.T) {
	sim := newTestSimulation(t, 2)
	_, err := sim.AddAgent(walker(0, 0, 1, 0))
	require.NoError(t, err)

	sys := NewAvoidanceSystem(sim, nil, nil, false)
	require.Error(t, sys.Update(0.1), "not initialized")

	ctx := context.Background()
	require.NoError(t, sys.Initialize(ctx))
	require.Equal(t, systems.StateRunning, sys.GetState())

	for i := 0; i < 3; i++ {
		require.NoError(t, sys.Update(0.1))
	}
	require.Equal(t, uint64(3), sim.Steps())
	require.Equal(t, uint64(3), sys.LastResult().Step)

	m := sys.GetMetrics()
	require.Equal(t, uint64(3), m.ExecutionCount)
	require.Equal(t, uint64(3), m.EntitiesProcessed)
	require.Zero(t, m.ErrorCount)

	require.Error(t, sys.Update(0))
	require.Equal(t, uint64(1), sys.GetMetrics().ErrorCount)

	require.NoError(t, sys.Shutdown(ctx))
	require.Equal(t, systems.StateShutdown, sys.GetState())
}

func TestAvoidanceSystemPipelined(t *testing.T) {
	sim := newTestSimulation(t, 2)
	_, err := sim.AddAgent(walker(0, 0, 1, 0))
	require.NoError(t, err)

	events := bus.New()
	var published []uint64
	events.Subscribe(bus.EventStepCommitted, func(e bus.Event) error {
		res, ok := e.Data.(StepResult)
		require.True(t, ok)
		published = append(published, res.Step)
		return nil
	})

	sys := NewAvoidanceSystem(sim, nil, events, true)
	ctx := context.Background()
	require.NoError(t, sys.Initialize(ctx))

	for i := 0; i < 3; i++ {
		require.NoError(t, sys.Update(0.1))
	}
	require.Equal(t, uint64(2), sys.LastResult().Step, "last update is still in flight")
	require.Equal(t, []uint64{1, 2}, published)

	require.NoError(t, sys.Shutdown(ctx))
	require.Equal(t, uint64(3), sim.Steps())
	require.Equal(t, []uint64{1, 2, 3}, published)
}

func TestAvoidanceSystemPauseAndTarget(t *testing.T) {
	sim := newTestSimulation(t, 1)
	id, err := sim.AddAgent(walker(0, 0, 0, 0))
	require.NoError(t, err)

	sys := NewAvoidanceSystem(sim, nil, nil, false)
	require.NoError(t, sys.Initialize(context.Background()))

	sys.SetEnabled(false)
	require.Equal(t, systems.StatePaused, sys.GetState())
	require.NoError(t, sys.Update(0.1))
	require.Equal(t, uint64(0), sim.Steps())

	sys.SetEnabled(true)
	sys.SetTarget(physics.V2(0, 10), 0.1)
	require.NoError(t, sys.Update(0.1))

	a, err := sim.Agent(id)
	require.NoError(t, err)
	require.Greater(t, a.Position.Z, 0.0)
	require.Equal(t, "avoidance", sys.Name())
}
