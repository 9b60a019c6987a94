package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/crowdsync/internal/core/observability/log"
	"github.com/zeusync/crowdsync/internal/core/orca"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crowdsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
simulation:
  plane: xy
  time_step: 0.05
  workers: 3
agent:
  mass: 2.5
scenario:
  agents: 12
stream:
  enabled: true
  addr: ":9000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, log.LevelDebug, cfg.Level())
	require.Equal(t, 0.05, cfg.Simulation.TimeStep)
	require.Equal(t, 64, cfg.Simulation.BatchSize, "untouched keys keep defaults")
	require.Equal(t, 12, cfg.Scenario.Agents)
	require.True(t, cfg.Stream.Enabled)

	opts, err := cfg.Options()
	require.NoError(t, err)
	require.Equal(t, physics.PlaneXY, opts.Plane)
	require.Equal(t, 3, opts.Workers)

	tpl := cfg.AgentTemplate()
	require.Equal(t, 2.5, tpl.Mass)
	require.True(t, tpl.BoundsValid)
	require.True(t, tpl.ConsiderOthers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "plane", body: "simulation:\n  plane: yz\n"},
		{name: "time step", body: "simulation:\n  time_step: 0\n"},
		{name: "agent", body: "agent:\n  radius: -1\n"},
		{name: "log level", body: "log_level: loud\n"},
		{name: "negative cell size", body: "simulation:\n  cell_size: -3\n"},
		{name: "tiny cell size", body: "simulation:\n  cell_size: 0.005\n  neighbor_dist: 10\n"},
		{name: "negative batch size", body: "simulation:\n  batch_size: -1\n"},
		{name: "negative epsilon", body: "simulation:\n  epsilon: -0.1\n"},
		{name: "stream addr", body: "stream:\n  enabled: true\n  addr: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestValidateAcceptsAutoCellSize(t *testing.T) {
	cfg := Default()
	cfg.Simulation.CellSize = 0
	cfg.Simulation.BatchSize = 0
	require.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "simulation: [1, 2"))
	require.ErrorContains(t, err, "parsing config")
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Agent.Mass = 0
	cfg.Simulation.TimeStep = -1

	err := cfg.Validate()
	require.ErrorIs(t, err, orca.ErrInvalidAgent)
	require.ErrorContains(t, err, "time_step")
}
