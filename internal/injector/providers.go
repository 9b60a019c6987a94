package injector

import (
	"time"

	"github.com/zeusync/crowdsync/internal/config"
	"github.com/zeusync/crowdsync/internal/core/crowd"
	"github.com/zeusync/crowdsync/internal/core/events/bus"
	"github.com/zeusync/crowdsync/internal/core/observability/log"
	"github.com/zeusync/crowdsync/internal/server"
)

// App is the fully wired simulator.
type App struct {
	Config config.Config
	Log    log.Log
	Events *bus.Bus
	Sim    *crowd.Simulation
	System *crowd.AvoidanceSystem
	Stream *server.Stream
}

func ProvideLogger(cfg config.Config) log.Log {
	return log.New(cfg.Level())
}

func ProvideOptions(cfg config.Config) (crowd.Options, error) {
	return cfg.Options()
}

func ProvideSimulation(opts crowd.Options, logger log.Log) *crowd.Simulation {
	return crowd.New(opts, nil, logger)
}

// slowEventDelivery is the delivery time above which step event handlers
// are reported.
const slowEventDelivery = 50 * time.Millisecond

// ProvideEventBus returns a bus that logs failing or slow handlers.
func ProvideEventBus(logger log.Log) *bus.Bus {
	events := bus.New()
	events.AddObserver(bus.NewLogObserver(logger, slowEventDelivery))
	return events
}

func ProvideAvoidanceSystem(cfg config.Config, sim *crowd.Simulation, logger log.Log, events *bus.Bus) *crowd.AvoidanceSystem {
	return crowd.NewAvoidanceSystem(sim, logger, events, cfg.Simulation.Pipeline)
}

// ProvideStream returns nil when streaming is disabled.
func ProvideStream(cfg config.Config, logger log.Log) *server.Stream {
	if !cfg.Stream.Enabled {
		return nil
	}
	streamCfg := server.DefaultStreamConfig()
	streamCfg.Addr = cfg.Stream.Addr
	return server.NewStream(streamCfg, logger)
}
