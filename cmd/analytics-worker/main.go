package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/gatewaysync/internal/analytics/writer"
	"github.com/angelmondragon/gatewaysync/internal/consumers/analytics"
	"github.com/angelmondragon/gatewaysync/pkg/bigquery"
	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/pubsub"
	"github.com/angelmondragon/gatewaysync/pkg/redis"
)

const serviceName = "analytics-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "analytics worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	broker, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer closeQuietly(ctx, logg, "pubsub", broker.Close)

	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	defer closeQuietly(ctx, logg, "bigquery", bq.Close)

	subscription := broker.Subscriber(cfg.PubSub.AnalyticsSubscription, cfg.Analytics.MaxOutstandingMessages)
	if subscription == nil {
		return errors.New("analytics subscription is not configured")
	}

	sink, err := writer.New(bq, writer.Config{
		EventsTable:        cfg.BigQuery.EventsTable,
		StatusChangesTable: cfg.BigQuery.StatusChangesTable,
	})
	if err != nil {
		return fmt.Errorf("analytics writer: %w", err)
	}
	consumer, err := analytics.NewConsumer(sink, redisClient, cfg.Analytics.DedupeTTL, logg)
	if err != nil {
		return fmt.Errorf("analytics consumer: %w", err)
	}

	service, err := NewService(ServiceParams{
		Logger:       logg,
		Subscription: subscription,
		Consumer:     consumer,
		Dependencies: map[string]pinger{
			"redis":    redisClient,
			"pubsub":   broker,
			"bigquery": bq,
		},
	})
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "subscription", broker.SubscriptionName(cfg.PubSub.AnalyticsSubscription))
	logg.Info(ctx, "analytics worker ready")
	return service.Run(ctx)
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "dependency", name), "close failed", err)
	}
}
