package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

const (
	defaultWebhookLogRetentionDays = 90
	defaultOutboxRetentionDays     = 30
)

type pruneFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// retentionJob deletes rows older than a rolling cutoff.
type retentionJob struct {
	name  string
	logg  *logger.Logger
	prune pruneFunc
	days  int
	now   func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, prune pruneFunc, days int) (*retentionJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if prune == nil {
		return nil, fmt.Errorf("%s: repository required", name)
	}
	return &retentionJob{name: name, logg: logg, prune: prune, days: days, now: time.Now}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "retention pass complete")
	return nil
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob drops published domain events after days.
func NewOutboxRetentionJob(logg *logger.Logger, repo outboxPruner, days int) (Job, error) {
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	var prune pruneFunc
	if repo != nil {
		prune = repo.DeletePublishedBefore
	}
	return newRetentionJob("outbox-retention", logg, prune, days)
}

type webhookLogPruner interface {
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewWebhookLogRetentionJob drops processed and skipped webhook log rows
// after days.
func NewWebhookLogRetentionJob(logg *logger.Logger, repo webhookLogPruner, days int) (Job, error) {
	if days <= 0 {
		days = defaultWebhookLogRetentionDays
	}
	var prune pruneFunc
	if repo != nil {
		prune = repo.DeleteSettledBefore
	}
	return newRetentionJob("webhook-log-retention", logg, prune, days)
}
