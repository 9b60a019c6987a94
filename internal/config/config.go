package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/crowdsync/internal/core/crowd"
	"github.com/zeusync/crowdsync/internal/core/observability/log"
	"github.com/zeusync/crowdsync/internal/core/orca"
	"github.com/zeusync/crowdsync/internal/core/spatial"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

// Config holds all configuration for the crowd simulator.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Simulation SimulationConfig `yaml:"simulation"`
	Agent      AgentConfig      `yaml:"agent"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Stream     StreamConfig     `yaml:"stream"`
}

// SimulationConfig tunes the solver and the dispatcher.
type SimulationConfig struct {
	Plane        string  `yaml:"plane"` // "xz" or "xy"
	TimeStep     float64 `yaml:"time_step"`
	Epsilon      float64 `yaml:"epsilon"`
	Workers      int     `yaml:"workers"` // 0 = GOMAXPROCS
	BatchSize    int     `yaml:"batch_size"`
	NeighborDist float64 `yaml:"neighbor_dist"`
	CellSize     float64 `yaml:"cell_size"`
	Pipeline     bool    `yaml:"pipeline"`
}

// AgentConfig is the template every spawned agent starts from.
type AgentConfig struct {
	Radius       float64 `yaml:"radius"`
	Mass         float64 `yaml:"mass"`
	MaxSpeed     float64 `yaml:"max_speed"`
	TimeHorizon  float64 `yaml:"time_horizon"`
	MaxNeighbors int     `yaml:"max_neighbors"`
}

// ScenarioConfig describes the circle crossing run by the CLI.
type ScenarioConfig struct {
	Agents      int     `yaml:"agents"`
	Seed        int64   `yaml:"seed"`
	SpawnRadius float64 `yaml:"spawn_radius"`
	Arrive      float64 `yaml:"arrive"` // goal distance at which agents stop
	Steps       int     `yaml:"steps"` // 0 = until interrupted
}

// StreamConfig controls the websocket frame stream.
type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Every   int    `yaml:"every"` // publish every Nth step
}

// Default returns Config with sensible defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Simulation: SimulationConfig{
			Plane:        "xz",
			TimeStep:     0.1,
			Epsilon:      orca.DefaultEpsilon,
			BatchSize:    64,
			NeighborDist: 10,
			CellSize:     10,
		},
		Agent: AgentConfig{
			Radius:       0.5,
			Mass:         1,
			MaxSpeed:     2,
			TimeHorizon:  5,
			MaxNeighbors: 10,
		},
		Scenario: ScenarioConfig{
			Agents:      100,
			Seed:        1,
			SpawnRadius: 40,
			Steps:       600,
		},
		Stream: StreamConfig{
			Addr:  "127.0.0.1:8080",
			Every: 1,
		},
	}
}

// Load reads config from a YAML file over the defaults.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the values the simulator cannot run with.
func (c Config) Validate() error {
	var errs []error

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := physics.ParsePlane(c.Simulation.Plane); err != nil {
		errs = append(errs, err)
	}
	if !(c.Simulation.TimeStep > 0) {
		errs = append(errs, fmt.Errorf("simulation.time_step must be positive, got %v", c.Simulation.TimeStep))
	}
	if c.Simulation.NeighborDist < 0 {
		errs = append(errs, fmt.Errorf("simulation.neighbor_dist must not be negative, got %v", c.Simulation.NeighborDist))
	}
	if c.Simulation.CellSize < 0 {
		errs = append(errs, fmt.Errorf("simulation.cell_size must not be negative, got %v", c.Simulation.CellSize))
	} else if c.Simulation.CellSize > 0 && c.Simulation.CellSize < spatial.MinCellSize(c.Simulation.NeighborDist) {
		errs = append(errs, fmt.Errorf("simulation.cell_size %v is below neighbor_dist/%d", c.Simulation.CellSize, spatial.MaxCellsPerRadius))
	}
	if c.Simulation.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("simulation.batch_size must not be negative, got %d", c.Simulation.BatchSize))
	}
	if c.Simulation.Epsilon < 0 || math.IsNaN(c.Simulation.Epsilon) {
		errs = append(errs, fmt.Errorf("simulation.epsilon must not be negative, got %v", c.Simulation.Epsilon))
	}
	template := c.AgentTemplate()
	if err := template.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("agent: %w", err))
	}
	if c.Scenario.Agents < 0 {
		errs = append(errs, fmt.Errorf("scenario.agents must not be negative, got %d", c.Scenario.Agents))
	}
	if c.Stream.Enabled && c.Stream.Addr == "" {
		errs = append(errs, errors.New("stream.addr is required when the stream is enabled"))
	}

	return errors.Join(errs...)
}

// Level returns the configured log level, falling back to info.
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

// Options converts the simulation section into crowd options.
func (c Config) Options() (crowd.Options, error) {
	plane, err := physics.ParsePlane(c.Simulation.Plane)
	if err != nil {
		return crowd.Options{}, err
	}
	return crowd.Options{
		Plane:        plane,
		Epsilon:      c.Simulation.Epsilon,
		Workers:      c.Simulation.Workers,
		BatchSize:    c.Simulation.BatchSize,
		NeighborDist: c.Simulation.NeighborDist,
		CellSize:     c.Simulation.CellSize,
	}, nil
}

// AgentTemplate builds the agent every scenario spawn copies.
func (c Config) AgentTemplate() orca.Agent {
	return orca.Agent{
		Radius:         c.Agent.Radius,
		Mass:           c.Agent.Mass,
		MaxSpeed:       c.Agent.MaxSpeed,
		TimeHorizon:    c.Agent.TimeHorizon,
		MaxNeighbors:   c.Agent.MaxNeighbors,
		ConsiderOthers: true,
		BoundsValid:    true,
	}
}
