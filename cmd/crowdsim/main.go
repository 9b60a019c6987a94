package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/crowdsync/internal/config"
	"github.com/zeusync/crowdsync/internal/core/crowd"
	"github.com/zeusync/crowdsync/internal/core/events/bus"
	"github.com/zeusync/crowdsync/internal/core/observability/log"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
	"github.com/zeusync/crowdsync/internal/injector"
	"github.com/zeusync/crowdsync/internal/server"
)

func main() {
	configPath := flag.String("config", "crowdsim.yaml", "path to YAML config")
	realtime := flag.Bool("realtime", false, "pace steps to wall-clock time")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	app, err := injector.InitializeApp(cfg)
	if err != nil {
		fmt.Println("Error building simulator:", err)
		os.Exit(1)
	}
	defer func() { _ = app.Log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, app, *realtime); err != nil {
		app.Log.Error("Simulation failed", log.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, app *injector.App, realtime bool) error {
	cfg := app.Config
	rng := rand.New(rand.NewSource(cfg.Scenario.Seed))

	spawns, err := crowd.SpawnDisc(app.Sim, cfg.Scenario.Agents, physics.Vec3{}, cfg.Scenario.SpawnRadius, rng, cfg.AgentTemplate())
	if err != nil {
		return err
	}
	app.System.SetGoals(crowd.Goals(spawns), cfg.Scenario.Arrive)

	if app.Stream != nil {
		if err := app.Stream.Start(ctx); err != nil {
			return err
		}
		every := uint64(max(cfg.Stream.Every, 1))
		var views []crowd.AgentView
		sub := app.Events.Subscribe(bus.EventStepCommitted, func(e bus.Event) error {
			if e.Step%every != 0 {
				return nil
			}
			var frame server.Frame
			frame, views = server.FrameOf(app.Sim, views)
			return app.Stream.Publish(frame)
		})
		defer sub.Cancel()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.Stream.Stop(stopCtx); err != nil {
				app.Log.Warn("Error stopping stream", log.Error(err))
			}
		}()
	}

	if err := app.System.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.System.Shutdown(context.Background()); err != nil {
			app.Log.Warn("Error stopping avoidance system", log.Error(err))
		}
	}()

	dt := cfg.Simulation.TimeStep
	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}

	start := time.Now()
	for step := 0; cfg.Scenario.Steps == 0 || step < cfg.Scenario.Steps; step++ {
		select {
		case <-ctx.Done():
			app.Log.Info("Interrupted", log.Int("steps", step))
			return nil
		default:
		}

		if err := app.System.Update(dt); err != nil {
			return err
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
	}

	app.Sim.Flush()
	metrics := app.System.GetMetrics()
	events := app.Events.GetMetrics()
	app.Log.Info("Simulation finished",
		log.Uint64("steps", app.Sim.Steps()),
		log.Float64("simulated_seconds", app.Sim.Elapsed()),
		log.Duration("wall", time.Since(start)),
		log.Duration("avg_update", metrics.AverageExecutionTime),
		log.String("checksum", fmt.Sprintf("%016x", app.Sim.Checksum())),
		log.Uint64("events_published", events.Published),
		log.Uint64("event_errors", events.Errors),
	)
	return nil
}
