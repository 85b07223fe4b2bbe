package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"skyline-hq/anarchy/pkg/anarchy"
	"skyline-hq/anarchy/pkg/cli"
	"skyline-hq/anarchy/pkg/config"
	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/session"
	"skyline-hq/anarchy/pkg/settings"
	"skyline-hq/anarchy/pkg/telemetry/logging"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
	"skyline-hq/anarchy/pkg/telemetry/tracing"
)

// appOptions selects which long-lived parts newApp starts.
type appOptions struct {
	// persist writes policy changes back to the settings store.
	persist bool

	// background starts the settings watcher and the session sweeper.
	background bool
}

// app holds the core objects shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	store    settings.Store
	registry *errorcheck.Registry
	mode     *anarchy.State
	sessions *session.Arena
	watcher  *settings.Watcher
	sweeper  *session.Sweeper
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newApp wires configuration, telemetry, the settings store and the core
// state. Logs go to logOut. The caller must Close the app.
func newApp(ctx context.Context, logOut io.Writer, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, logOut))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	a.metrics = metrics.FromConfig(&cfg.Telemetry.Metrics)

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	raw, err := settings.Open(&cfg.Settings, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	a.store = settings.Instrument(raw, a.metrics)

	var persister errorcheck.Persister
	if opts.persist {
		persister = a.store
	}
	a.registry = errorcheck.NewDefaultRegistry(persister, logger)
	if err := settings.Restore(ctx, a.store, a.registry); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to restore policy table: %w", err)
	}

	tools := make([]anarchy.ToolID, 0, len(cfg.Anarchy.EligibleTools))
	for _, t := range cfg.Anarchy.EligibleTools {
		tools = append(tools, anarchy.ToolID(t))
	}
	a.mode = anarchy.NewState(cfg.Anarchy.EnabledOnStart, tools...)
	a.sessions = session.NewArena(session.Config{
		Steps: cfg.Elevation.Steps,
		Range: session.ElevationRange{
			DefaultBound:  cfg.Elevation.DefaultBound,
			ExpandedBound: cfg.Elevation.ExpandedBound,
			Expanded:      cfg.Elevation.ExpandedRange,
		},
		MaxSlope: cfg.Grade.MaxSlope,
	})

	logger.Debug("core initialized",
		"settings_backend", a.store.Backend(),
		"checks", a.registry.Len(),
		"anarchy", a.mode.Enabled(),
	)

	if !opts.background {
		return a, nil
	}

	if cfg.Settings.Watch {
		fs, ok := raw.(*settings.FileStore)
		if !ok {
			a.Close()
			return nil, cli.NewConfigError("settings.watch", "watch requires the file backend")
		}
		a.watcher, err = settings.NewWatcher(fs, cfg.Settings.Debounce, a.metrics, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		go func() {
			if err := a.watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("settings watcher stopped", "error", err)
			}
		}()
	}

	a.sweeper = session.NewSweeper(a.sessions, cfg.Sessions.SweepSchedule, cfg.Sessions.IdleTTL, logger).
		WithMetrics(a.metrics)
	if err := a.sweeper.Start(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start session sweeper: %w", err)
	}

	return a, nil
}

// Close stops background work and releases the settings store.
func (a *app) Close() {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("failed to stop settings watcher", "error", err)
		}
	}
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("failed to shut down tracer", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close settings store", "error", err)
		}
	}
}
