// cmd/flightsim/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-flightsim/pkg/config"
	"github.com/opd-ai/go-flightsim/pkg/controls"
	"github.com/opd-ai/go-flightsim/pkg/engine"
	"github.com/opd-ai/go-flightsim/pkg/health"
	"github.com/opd-ai/go-flightsim/pkg/logging"
	"github.com/opd-ai/go-flightsim/pkg/render"
	"github.com/opd-ai/go-flightsim/pkg/resource"
	"github.com/opd-ai/go-flightsim/pkg/telemetry"
	"github.com/opd-ai/go-flightsim/pkg/validation"
)

// Map view size in cells and meters per cell
const (
	mapWidth  = 60
	mapHeight = 20
	mapScale  = 50.0
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "flightsim.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	scenario := flag.String("scenario", "", "Built-in scenario name or schedule file; empty flies the interactive pilot")
	duration := flag.Float64("duration", 0, "Simulated seconds to fly; 0 uses the scenario length")
	realtime := flag.Bool("realtime", false, "Pace steps against the wall clock")
	httpAddr := flag.String("http", "", "HTTP listen address, overrides the configuration")
	hudMode := flag.String("hud", "text", "HUD output: text, map or none")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	cfg, err := loadConfig(ctx, logger, *configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}

	var (
		source engine.ControlSource
		pilot  *controls.Pilot
	)
	if *scenario != "" {
		schedule, err := loadScenario(*scenario)
		if err != nil {
			logger.Error(ctx, "Failed to load scenario", err, "scenario", *scenario)
			os.Exit(1)
		}
		source = schedule
		if *duration == 0 {
			*duration = schedule.Duration()
		}
	} else {
		pilot = controls.NewPilot(0)
		source = pilot
	}

	runner := engine.NewRunner(cfg, source, logger)
	runner.Duration = *duration

	metrics := telemetry.NewMetrics()
	metrics.Subscribe(runner.EventBus)
	runner.Metrics = metrics

	hud, err := newHUD(*hudMode, os.Stdout, logger)
	if err != nil {
		logger.Error(ctx, "Invalid HUD mode", err, "hud", *hudMode)
		os.Exit(1)
	}
	runner.HUD = hud

	rm := resource.NewManager(cfg.Resources, logger)
	if err := rm.Start(ctx); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}

	healthChecker := health.NewChecker(runner)
	healthChecker.Register(
		health.NewAircraftCheck(runner),
		health.NewLoopCheck(runner),
		health.NewMemoryCheck(cfg.Resources.MaxMemoryMB, rm.MemoryUsage),
		resource.NewHealthCheck(rm),
	)

	if path := cfg.Telemetry.RecorderPath; path != "" {
		recorder, err := telemetry.OpenRecorder(path, cfg.Telemetry, logger, runner.EventBus)
		if err != nil {
			logger.Error(ctx, "Failed to open flight recorder", err, "path", path)
			os.Exit(1)
		}
		defer recorder.Close()
		runner.Recorder = recorder
		healthChecker.Register(health.NewRecorderCheck(recorder.State))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	guard := validation.NewRequestGuard(cfg.Server.RequestsPerMinute)
	defer guard.Close()

	var srv *http.Server
	if cfg.Server.HTTPAddr != "" {
		srv = &http.Server{
			Addr: cfg.Server.HTTPAddr,
			Handler: newRouter(&api{
				runner:  runner,
				pilot:   pilot,
				health:  healthChecker,
				metrics: metrics,
				guard:   guard,
				logger:  logger,
			}),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		if err := serve(ctx, rm, srv, logger); err != nil {
			logger.Error(ctx, "Failed to start HTTP server", err)
			os.Exit(1)
		}
	}

	logger.Info(ctx, "Starting flight",
		"aircraft_type", cfg.Aircraft.Type,
		"scenario", *scenario,
		"duration", *duration,
		"realtime", *realtime,
	)

	if *realtime {
		err = runner.Run(ctx)
	} else if *duration > 0 {
		_, err = runner.RunFor(ctx, *duration)
	} else {
		err = fmt.Errorf("a positive -duration or a scenario is required without -realtime")
	}
	if err != nil && ctx.Err() == nil {
		logger.Error(ctx, "Simulation failed", err)
	}

	if srv != nil {
		// Keep serving the final state until interrupted
		if ctx.Err() == nil && *realtime {
			<-ctx.Done()
		}
		logger.Info(context.Background(), "Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(context.Background(), "HTTP server shutdown failed", err)
		}
	}
	if err := rm.Shutdown(context.Background()); err != nil {
		logger.Error(context.Background(), "Resource manager shutdown failed", err)
	}

	snap := runner.Snapshot()
	logger.Info(context.Background(), "Flight finished",
		"steps", snap.Step,
		"sim_time", snap.SimTime,
		"altitude", snap.State.Altitude,
		"airspeed", snap.State.Airspeed,
	)
}

// loadConfig reads path if it exists and applies environment overrides
func loadConfig(ctx context.Context, logger *logging.Logger, path string) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment configuration: %w", err)
	}
	return cfg, nil
}

// loadScenario resolves a built-in scenario name, falling back to a file
func loadScenario(name string) (*controls.Schedule, error) {
	if schedule, err := controls.Scenario(name); err == nil {
		return schedule, nil
	}
	return controls.LoadSchedule(name)
}

func newHUD(mode string, w io.Writer, logger *logging.Logger) (render.HUD, error) {
	switch mode {
	case "text":
		return render.NewTextHUD(w), nil
	case "map":
		return render.Multi{render.NewMapView(w, mapWidth, mapHeight, mapScale), render.NewTextHUD(w)}, nil
	case "none":
		return render.NewNullHUD(logger), nil
	}
	return nil, fmt.Errorf("unknown HUD mode %q", mode)
}
