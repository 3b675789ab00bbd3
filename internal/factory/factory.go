package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/clock"
	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/ids"
	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
	"github.com/mcoot/portfolio-leaderboard/internal/services/submission"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
	"github.com/mcoot/portfolio-leaderboard/internal/storage/memory"
	pgstorage "github.com/mcoot/portfolio-leaderboard/internal/storage/postgres"
	redisstorage "github.com/mcoot/portfolio-leaderboard/internal/storage/redis"
	"github.com/mcoot/portfolio-leaderboard/internal/web/sse"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Store storage.Store

	// External dependencies
	Clock clock.Clock
	IDs   ids.Generator

	// Services
	Submission  *submission.Service
	Leaderboard *leaderboard.Service

	// Live updates
	Hub         *sse.Hub
	Broadcaster *sse.Broadcaster

	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds Postgres settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
	// Metrics receives application metrics (optional)
	// If nil, metrics are discarded
	Metrics metrics.Recorder
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	idGen := ids.New()

	// Create storage based on type
	var store storage.Store
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(idGen)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig, idGen, logger.With(slog.String("component", "redis")))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = redisStore
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(ctx, *cfg.PostgresConfig, logger.With(slog.String("component", "postgres")))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store = pgStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	return newWithDependencies(store, clock.New(), idGen, m, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Store, clk clock.Clock, idGen ids.Generator, m metrics.Recorder, logger *slog.Logger) *App {
	hub := sse.NewHub("players", m, logger)

	return &App{
		Store:       store,
		Clock:       clk,
		IDs:         idGen,
		Submission:  submission.New(store, clk, m, logger),
		Leaderboard: leaderboard.New(store, clk, m, logger),
		Hub:         hub,
		Broadcaster: sse.NewBroadcaster(hub, logger),
		Metrics:     m,
		Logger:      logger,
	}
}

// Start runs the SSE hub and relays store changes to it until ctx ends.
// The hub is closed before Start returns.
func (a *App) Start(ctx context.Context) error {
	hubDone := make(chan struct{})
	go func() {
		a.Hub.Run()
		close(hubDone)
	}()

	err := a.Leaderboard.Watch(ctx, a.Broadcaster.PlayersChanged)
	a.Hub.Close()
	<-hubDone
	return err
}

// Close shuts down the hub and the store
func (a *App) Close() error {
	a.Hub.Close()
	return a.Store.Close()
}
