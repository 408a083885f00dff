// Package app assembles the application graph shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/concordia-classroom/concordia/config"
	"github.com/concordia-classroom/concordia/internal/application/report"
	"github.com/concordia-classroom/concordia/internal/application/state"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/internal/infrastructure/external/gemini"
	"github.com/concordia-classroom/concordia/internal/infrastructure/messaging"
	"github.com/concordia-classroom/concordia/internal/infrastructure/metrics"
	"github.com/concordia-classroom/concordia/internal/infrastructure/persistence"
	"github.com/concordia-classroom/concordia/internal/infrastructure/persistence/redis"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// App holds the long-lived components. Close releases them in reverse order.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Metrics *metrics.Collector
	Backend *persistence.Backend
	Bus     EventBus
	Store   *state.Store
	Gemini  *gemini.Client
	Reports *report.Service
}

// EventBus is a bus that owns resources.
type EventBus interface {
	shared.EventBus
	Close() error
}

// Options tweaks Build for short-lived processes.
type Options struct {
	// AsyncBus runs event handlers on the worker pool. The CLI keeps it off.
	AsyncBus bool
}

// Build wires storage, event bus, state store and report service.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	if err := timeutil.SetLocation(cfg.App.Timezone); err != nil {
		log.Warn("unknown timezone, using fixed offset", "timezone", cfg.App.Timezone, "error", err)
	}

	collector := metrics.New(metrics.Config{
		Namespace:      "concordia",
		IncludeRuntime: cfg.Observability.MetricsEnabled,
	})
	a := &App{Config: cfg, Log: log, Metrics: collector}

	// ─────────────────────────────────────────────────────────────────────────
	// STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	notify := cfg.Features.IsEnabled(config.FlagRedisNotify)
	backend, err := persistence.Open(ctx, cfg, notify, log)
	if err != nil {
		// only a notifications-only Redis outage is survivable
		if !notify || cfg.Storage.Backend == config.BackendRedis || !errors.Is(err, persistence.ErrRedisUnavailable) {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		log.Warn("Redis unavailable, notifications stay local", "error", err)
		notify = false
		if backend, err = persistence.Open(ctx, cfg, false, log); err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}
	a.Backend = backend

	// ─────────────────────────────────────────────────────────────────────────
	// EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.AsyncMode = opts.AsyncBus
	busCfg.Logger = log
	busCfg.Hooks = a.Metrics.EventBusHooks()

	if notify && backend.Redis != nil {
		// the bus closes the pubsub, the backend closes the client
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSub(backend.Redis),
			ChannelName:    cfg.Redis.EventsChannel,
			InstanceID:     instanceID(),
			LocalBusConfig: busCfg,
			Logger:         log,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start redis event bus: %w", err)
		}
		a.Bus = bus
		log.Info("event bus ready", "mode", "redis", "channel", cfg.Redis.EventsChannel)
	} else {
		a.Bus = messaging.NewInMemoryEventBus(busCfg)
		log.Info("event bus ready", "mode", "in-memory", "async", opts.AsyncBus)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// STATE + REPORTS
	// ─────────────────────────────────────────────────────────────────────────
	a.Store, err = state.NewStore(state.StoreConfig{
		Storage:  backend.Storage,
		Bus:      a.Bus,
		Key:      cfg.Storage.Key,
		Recorder: a.Metrics,
		Logger:   log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	geminiCfg := gemini.DefaultClientConfig(cfg.Gemini.APIKey)
	if cfg.Gemini.BaseURL != "" {
		geminiCfg.BaseURL = cfg.Gemini.BaseURL
	}
	if cfg.Gemini.Model != "" {
		geminiCfg.Model = cfg.Gemini.Model
	}
	if cfg.Gemini.RequestTimeout > 0 {
		geminiCfg.Timeout = cfg.Gemini.RequestTimeout
	}
	geminiCfg.MaxAttempts = cfg.Gemini.MaxRetries + 1
	if cfg.Gemini.CircuitBreakerThreshold > 0 {
		geminiCfg.BreakerThreshold = cfg.Gemini.CircuitBreakerThreshold
	}
	if cfg.Gemini.CircuitBreakerTimeout > 0 {
		geminiCfg.BreakerTimeout = cfg.Gemini.CircuitBreakerTimeout
	}
	geminiCfg.Logger = log
	a.Gemini = gemini.NewClient(geminiCfg)
	if !a.Gemini.Configured() {
		log.Warn("GEMINI_API_KEY is not set, report requests will fail")
	}

	a.Reports, err = report.NewService(report.ServiceConfig{
		States:    a.Store,
		Generator: a.Gemini,
		Bus:       a.Bus,
		Recorder:  a.Metrics,
		Logger:    log,
		Clock:     timeutil.SystemClock,
		Enabled:   func() bool { return cfg.Features.IsEnabled(config.FlagAIReports) },
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// PurgeLogs reports whether deleting a student also drops their logs.
func (a *App) PurgeLogs() bool {
	return a.Config.Features.IsEnabled(config.FlagPurgeStudentLogs)
}

// Close stops the report service, the bus and the storage.
func (a *App) Close() {
	if a.Reports != nil {
		a.Reports.Close()
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("failed to close event bus", "error", err)
		}
	}
	if a.Backend != nil {
		a.Log.Info("closing storage...")
		if err := a.Backend.Close(); err != nil {
			a.Log.Warn("failed to close storage", "error", err)
		}
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
