package injector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/crowdsync/internal/config"
	"github.com/zeusync/crowdsync/internal/core/events/bus"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

func TestInitializeApp(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Plane = "xy"

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app.Log)
	require.NotNil(t, app.System)
	require.NotNil(t, app.Events)

	app.Events.Subscribe(bus.EventStepCommitted, func(bus.Event) error { return nil })
	require.NoError(t, app.Events.Publish(bus.NewEvent(bus.EventStepCommitted, "test", 1, nil)))
	require.Equal(t, uint64(1), app.Events.GetMetrics().Published, "bus comes with an observer")
	require.Nil(t, app.Stream, "stream is off by default")
	require.Equal(t, physics.PlaneXY, app.Sim.Options().Plane)
	require.Same(t, app.Sim, app.System.Simulation())

	cfg.Stream.Enabled = true
	app, err = InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app.Stream)
}

func TestInitializeAppBadPlane(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Plane = "yz"

	_, err := InitializeApp(cfg)
	require.Error(t, err)
}
