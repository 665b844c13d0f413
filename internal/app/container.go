package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/james-6-23/new-api-tools-sub000/internal/aiban"
	"github.com/james-6-23/new-api-tools-sub000/internal/auth"
	"github.com/james-6-23/new-api-tools-sub000/internal/cache"
	"github.com/james-6-23/new-api-tools-sub000/internal/config"
	"github.com/james-6-23/new-api-tools-sub000/internal/console"
	"github.com/james-6-23/new-api-tools-sub000/internal/health"
	"github.com/james-6-23/new-api-tools-sub000/internal/journal"
	"github.com/james-6-23/new-api-tools-sub000/internal/limits"
	"github.com/james-6-23/new-api-tools-sub000/internal/observability"
	"github.com/james-6-23/new-api-tools-sub000/internal/prefs"
	"github.com/james-6-23/new-api-tools-sub000/internal/upstream"
)

// Container aggregates runtime dependencies for handlers and services.
type Container struct {
	Config        *config.Config
	DBPool        *pgxpool.Pool
	Redis         *redis.Client
	Upstream      *upstream.Client
	Prefs         *prefs.Store
	Snapshots     *cache.SnapshotCache
	Journal       *journal.Store
	Auth          *auth.Service
	Sessions      *console.Manager
	AIBan         *aiban.Service
	HealthMon     *health.Monitor
	Observability *observability.Provider
}

// NewContainer builds a dependency container from the provided primitives.
// The database pool is optional; without it the action journal is disabled.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	logger := slog.Default()

	upstreamClient := upstream.NewClient(cfg.Upstream)
	prefStore := prefs.NewStore(redisClient)
	snapshots := cache.NewSnapshotCache(redisClient, cfg.Cache.LeaderboardTTL)
	journalStore := journal.NewStore(pool)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, "risk-console")
	if err != nil {
		return nil, fmt.Errorf("init token manager: %w", err)
	}
	limiter := limits.NewLoginLimiter(redisClient, cfg.Auth.LoginsPerMinute)
	authSvc, err := auth.NewService(cfg.Auth, tokens, limiter)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	obs, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	sessions := console.NewManager(console.Deps{
		Config:    cfg,
		Upstream:  upstreamClient,
		Prefs:     prefStore,
		Journal:   journalStore,
		Snapshots: snapshots,
		Metrics:   obs,
		Logger:    logger,
	}, cfg.Sessions.IdleTimeout, cfg.Sessions.SweepInterval)

	container := &Container{
		Config:        cfg,
		DBPool:        pool,
		Redis:         redisClient,
		Upstream:      upstreamClient,
		Prefs:         prefStore,
		Snapshots:     snapshots,
		Journal:       journalStore,
		Auth:          authSvc,
		Sessions:      sessions,
		AIBan:         aiban.NewService(upstreamClient, cfg.Scanner, logger),
		HealthMon:     health.NewMonitor(upstreamClient, cfg.Health),
		Observability: obs,
	}
	container.HealthMon.Start(ctx)
	return container, nil
}

// Shutdown releases container resources in reverse dependency order.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error
	if c.Sessions != nil {
		if err := c.Sessions.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Observability != nil {
		if err := c.Observability.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.DBPool != nil {
		c.DBPool.Close()
	}
	return firstErr
}
