package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/portfolio-leaderboard/internal/api"
	"github.com/mcoot/portfolio-leaderboard/internal/config"
	"github.com/mcoot/portfolio-leaderboard/internal/factory"
	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/server"
	pgstorage "github.com/mcoot/portfolio-leaderboard/internal/storage/postgres"
	redisstorage "github.com/mcoot/portfolio-leaderboard/internal/storage/redis"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the portfolio leaderboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&configPath, "config", os.Getenv("PFBOARD_CONFIG"), "Path to a YAML config file (env: PFBOARD_CONFIG)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
	}

	switch cfg.Storage.Type {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		factoryCfg.RedisConfig = &redisCfg
	case config.StoragePostgres:
		pgCfg := pgstorage.DefaultConfig()
		pgCfg.URL = cfg.Postgres.URL
		pgCfg.Schema = cfg.Postgres.Schema
		factoryCfg.PostgresConfig = &pgCfg
	}

	var metricsEndpoint *server.MetricsEndpoint
	if cfg.Metrics.Enabled {
		m := metrics.New()
		factoryCfg.Metrics = m
		metricsEndpoint = &server.MetricsEndpoint{Path: cfg.Metrics.Path, Handler: m.Handler()}
	}

	app, err := factory.New(ctx, factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	srv := api.NewServer(server.NewHandler(app, metricsEndpoint), cfg.Server, logger)
	ln, err := srv.Listen()
	if err != nil {
		logger.Error("failed to listen", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server started",
		slog.String("addr", ln.Addr().String()),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("metrics", cfg.Metrics.Enabled),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.Start(gctx); err != nil {
			return fmt.Errorf("change relay stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
