package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/gatewaysync/internal/bootstrap"
	"github.com/angelmondragon/gatewaysync/internal/cron"
	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/db"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/metrics"
	"github.com/angelmondragon/gatewaysync/pkg/migrate"
	"github.com/angelmondragon/gatewaysync/pkg/outbox"
	"github.com/angelmondragon/gatewaysync/pkg/redis"
)

const lockNameFormat = "cron-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	engine, err := bootstrap.NewEngine(ctx, bootstrap.Params{
		Config:  cfg,
		Logger:  logg,
		DB:      dbClient.DB(),
		Metrics: metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer func() {
		if err := engine.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing engine", err)
		}
	}()

	registry, err := newRegistry(cfg, logg, engine, dbClient)
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Tick:     cfg.Replay.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	logg.Info(logg.WithField(ctx, "jobs", registry.Names()), "starting cron worker")
	return service.Run(ctx)
}

// newRegistry runs replay on every tick and the retention sweeps on their
// own, slower cadence.
func newRegistry(cfg *config.Config, logg *logger.Logger, engine *bootstrap.Engine, dbClient *db.Client) (*cron.Registry, error) {
	registry := cron.NewRegistry()

	replay, err := cron.NewReplayJob(cron.ReplayJobParams{
		Logger:      logg,
		Replayer:    engine.Router,
		BatchSize:   cfg.Replay.BatchSize,
		MaxAttempts: cfg.Replay.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("replay job: %w", err)
	}
	logRetention, err := cron.NewWebhookLogRetentionJob(logg, engine.WebhookLog, cfg.Cron.WebhookLogRetentionDays)
	if err != nil {
		return nil, fmt.Errorf("webhook log retention job: %w", err)
	}
	outboxRetention, err := cron.NewOutboxRetentionJob(logg, outbox.NewRepository(dbClient.DB()), cfg.Cron.OutboxRetentionDays)
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	if err := registry.Register(replay, 0); err != nil {
		return nil, err
	}
	for _, job := range []cron.Job{logRetention, outboxRetention} {
		if err := registry.Register(job, cfg.Cron.RetentionInterval); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockNameFormat, env)
}
