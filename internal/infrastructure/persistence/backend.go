// Package persistence opens the configured state backend.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/concordia-classroom/concordia/config"
	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/infrastructure/persistence/file"
	"github.com/concordia-classroom/concordia/internal/infrastructure/persistence/postgres"
	"github.com/concordia-classroom/concordia/internal/infrastructure/persistence/redis"
	"github.com/concordia-classroom/concordia/internal/infrastructure/persistence/sqlite"
	"github.com/concordia-classroom/concordia/pkg/retry"
)

// ErrRedisUnavailable marks an Open failure caused by the Redis connection
// alone. Callers that only need Redis for notifications may retry without it.
var ErrRedisUnavailable = errors.New("persistence: redis unavailable")

// Backend is an opened state storage. Redis is set whenever a Redis
// connection was opened, either as the storage itself or for notifications.
type Backend struct {
	Name    config.StorageBackend
	Storage classroom.BlobStorage
	Redis   *redis.Client

	closers []func() error
}

// Close releases every connection in reverse opening order.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Open connects the backend chosen by STORAGE_BACKEND. withRedis forces a
// Redis connection even for other backends (cross-instance notifications).
func Open(ctx context.Context, cfg *config.Config, withRedis bool, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	b := &Backend{Name: cfg.Storage.Backend}
	retrier := retry.StorageRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("storage connection failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	})

	fail := func(err error) (*Backend, error) {
		_ = b.Close()
		return nil, err
	}

	if withRedis || cfg.Storage.Backend == config.BackendRedis {
		log.Info("connecting to Redis...")
		client, err := retry.DoWithData(ctx, retrier, func(ctx context.Context) (*redis.Client, error) {
			return redis.NewClient(ctx, redisConfig(cfg.Redis))
		})
		if err != nil {
			return fail(fmt.Errorf("%w: %w", ErrRedisUnavailable, err))
		}
		b.Redis = client
		b.closers = append(b.closers, client.Close)
		log.Info("Redis connection established")
	}

	switch cfg.Storage.Backend {
	case config.BackendFile:
		store, err := file.NewBlobStore(cfg.Storage.Dir)
		if err != nil {
			return fail(err)
		}
		b.Storage = store

	case config.BackendRedis:
		// the blob store owns the shared client from here on
		b.closers = nil
		b.Storage = redis.NewBlobStore(b.Redis, "")

	case config.BackendPostgres:
		log.Info("connecting to database...")
		pgCfg := postgresConfig(cfg.Database)
		conn, err := retry.DoWithData(ctx, retrier, func(ctx context.Context) (*postgres.Connection, error) {
			return postgres.NewConnection(ctx, pgCfg)
		})
		if err != nil {
			return fail(err)
		}
		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			conn.Close()
			return fail(fmt.Errorf("postgres: migrate: %w", err))
		}
		if status, err := migrator.Status(ctx); err != nil {
			log.Warn("failed to get migration status", "error", err)
		} else {
			applied := 0
			for _, m := range status {
				if m.IsApplied {
					applied++
				}
			}
			log.Info("migrations completed", "applied", applied, "total", len(status))
		}
		b.Storage = postgres.NewBlobStore(conn, pgCfg)

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return fail(err)
		}
		b.Storage = store

	default:
		return fail(fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend))
	}

	b.closers = append(b.closers, b.Storage.Close)

	log.Info("state storage ready", "backend", string(cfg.Storage.Backend))
	return b, nil
}

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = c.URL
	rc.Host = c.Host
	rc.Port = c.Port
	rc.Password = c.Password
	rc.DB = c.DB
	if c.PoolSize > 0 {
		rc.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		rc.MinIdleConns = c.MinIdleConns
	}
	if c.DialTimeout > 0 {
		rc.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	return rc
}

func postgresConfig(c config.DatabaseConfig) postgres.Config {
	pc := postgres.DefaultConfig()
	pc.URL = c.URL
	if c.MaxOpenConns > 0 {
		pc.MaxConns = int32(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		pc.MinConns = int32(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = c.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime > 0 {
		pc.MaxConnIdleTime = c.ConnMaxIdleTime
	}
	if c.QueryTimeout > 0 {
		pc.QueryTimeout = c.QueryTimeout
	}
	return pc
}
