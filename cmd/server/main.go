// Package main - точка входа HTTP API Concordia.
//
// Сервер держит один документ состояния класса (классы, ученики, расписание,
// журнал оценок и наблюдений), отдаёт производные представления и
// запрашивает у модели краткие отчёты по ученику.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/concordia-classroom/concordia/config"
	"github.com/concordia-classroom/concordia/internal/app"
	httpserver "github.com/concordia-classroom/concordia/internal/interface/http"
	"github.com/concordia-classroom/concordia/internal/interface/http/handlers"
	"github.com/concordia-classroom/concordia/pkg/logger"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Concordia API",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"backend", string(cfg.Storage.Backend),
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ, EVENT BUS, СОСТОЯНИЕ, ОТЧЁТЫ
	// ─────────────────────────────────────────────────────────────────────────
	application, err := app.Build(ctx, cfg, log, app.Options{AsyncBus: true})
	if err != nil {
		return err
	}
	defer application.Close()

	// Прогреваем кэш и логируем размер документа
	st := application.Store.Load(ctx)
	log.Info("state loaded",
		"classes", len(st.Classes),
		"students", len(st.Students),
		"grades", len(st.ParticipationLogs),
		"incidents", len(st.BehaviorLogs),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("storage", handlers.NewPingCheck(application.Backend.Storage))
	if application.Backend.Redis != nil && cfg.Storage.Backend != config.BackendRedis {
		health.AddAdvisoryCheck("redis", handlers.NewPingCheck(application.Backend.Redis))
	}
	if application.Gemini.Configured() {
		health.AddAdvisoryCheck("gemini", handlers.NewBreakerCheck(application.Gemini))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.ConfigFrom(cfg.HTTP, cfg.Observability.MetricsEnabled)

	httpDeps := httpserver.Dependencies{
		Reports:       application.Reports,
		Metrics:       application.Metrics,
		Features:      cfg.Features,
		HealthChecker: health,
		Logger:        newRequestLogger(cfg),
	}
	httpDeps.WireApplication(application.Store, timeutil.SystemClock, application.PurgeLogs, log)

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", httpConfig.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("Concordia API is running", "http_address", httpConfig.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	case <-ctx.Done():
	}

	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log.Info("starting graceful shutdown...", "timeout", timeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		log.Warn("shutdown completed with errors")
		return nil
	}

	// Хранилище и шина закроются через defer
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: slogLevel(cfg)}

	if cfg.Observability.LogFormat == "json" || (cfg.Observability.LogFormat == "" && cfg.IsProduction()) {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func slogLevel(cfg *config.Config) slog.Level {
	if cfg.App.Debug {
		return slog.LevelDebug
	}
	switch cfg.Observability.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newRequestLogger создаёт логгер HTTP-слоя с тем же уровнем и форматом.
func newRequestLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	if cfg.Observability.LogFormat != "" {
		opts.Format = logger.ParseFormat(cfg.Observability.LogFormat)
	} else if !cfg.IsProduction() {
		opts.Format = logger.FormatText
	}
	return logger.New(opts).With(logger.Component("http"))
}
