package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/geekyuvi069/CureLink/internal/appointments"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	appconfig "github.com/geekyuvi069/CureLink/internal/config"
	"github.com/geekyuvi069/CureLink/internal/conversation"
	"github.com/geekyuvi069/CureLink/internal/events"
	"github.com/geekyuvi069/CureLink/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens the pool when DATABASE_URL is set. A nil pool with
// a nil error means the process runs on in-memory storage.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	if logger != nil {
		logger.Info("postgres connected")
	}
	return pool, nil
}

// Storage groups the persistence adapters selected for this process.
type Storage struct {
	Directory    clinic.Directory
	Appointments appointments.Repository
	Sessions     conversation.Store
	Processed    events.Tracker
}

// BuildStorage picks Postgres adapters when a pool is available and falls
// back to in-memory ones seeded with the default directory otherwise.
func BuildStorage(cfg *appconfig.Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *logging.Logger) (*Storage, error) {
	if logger == nil {
		logger = logging.Default()
	}
	st := &Storage{}
	if pool != nil {
		st.Directory = clinic.NewPostgresDirectory(pool)
		st.Appointments = appointments.NewPostgresRepository(pool)
		st.Processed = events.NewProcessedStore(pool)
	} else {
		dir := clinic.NewMemoryDirectory()
		if err := clinic.LoadMemory(dir, clinic.DefaultSeed); err != nil {
			return nil, fmt.Errorf("bootstrap: load default directory: %w", err)
		}
		logger.Warn("DATABASE_URL not set; using in-memory directory and appointments")
		st.Directory = dir
		st.Appointments = appointments.NewInMemoryRepository()
		st.Processed = events.NewMemoryTracker(0)
	}
	st.Sessions = BuildSessionStore(cfg, pool, redisClient, logger)
	return st, nil
}

// BuildSessionStore honours SESSION_BACKEND, degrading to memory when the
// requested backend has no connection.
func BuildSessionStore(cfg *appconfig.Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *logging.Logger) conversation.Store {
	if logger == nil {
		logger = logging.Default()
	}
	backend := "memory"
	if cfg != nil {
		backend = cfg.SessionBackend
	}
	switch backend {
	case "postgres":
		if pool != nil {
			logger.Info("session store", "backend", "postgres")
			return conversation.NewPostgresStore(pool)
		}
		logger.Warn("postgres session store requested without DATABASE_URL; using memory")
	case "redis":
		if redisClient != nil {
			logger.Info("session store", "backend", "redis", "ttl", cfg.SessionTTL.String())
			return conversation.NewRedisStore(redisClient, cfg.SessionTTL)
		}
		logger.Warn("redis session store requested but redis is unavailable; using memory")
	}
	logger.Info("session store", "backend", "memory")
	return conversation.NewMemoryStore()
}
