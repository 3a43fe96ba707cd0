package cron

import (
	"context"
	"fmt"

	stripewebhook "github.com/angelmondragon/gatewaysync/internal/webhooks/stripe"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

const (
	defaultReplayBatch       = 25
	defaultReplayMaxAttempts = 5
)

type failedReplayer interface {
	ReplayFailed(ctx context.Context, maxAttempts, limit int) (stripewebhook.ReplaySummary, error)
}

type ReplayJobParams struct {
	Logger      *logger.Logger
	Replayer    failedReplayer
	BatchSize   int
	MaxAttempts int
}

// NewReplayJob re-runs errored webhook events that are still below the
// attempt ceiling.
func NewReplayJob(params ReplayJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Replayer == nil {
		return nil, fmt.Errorf("replayer required")
	}
	job := &replayJob{
		logg:        params.Logger,
		replayer:    params.Replayer,
		batch:       params.BatchSize,
		maxAttempts: params.MaxAttempts,
	}
	if job.batch <= 0 {
		job.batch = defaultReplayBatch
	}
	if job.maxAttempts <= 0 {
		job.maxAttempts = defaultReplayMaxAttempts
	}
	return job, nil
}

type replayJob struct {
	logg        *logger.Logger
	replayer    failedReplayer
	batch       int
	maxAttempts int
}

func (j *replayJob) Name() string { return "webhook-replay" }

// Run fails only when the batch could not be listed or was cut short.
// Events that error again stay in the log for the next cycle.
func (j *replayJob) Run(ctx context.Context) error {
	summary, err := j.replayer.ReplayFailed(ctx, j.maxAttempts, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"attempted":    summary.Attempted,
		"recovered":    summary.Recovered,
		"failed":       summary.Failed,
		"max_attempts": j.maxAttempts,
	})
	if err != nil {
		return fmt.Errorf("replay failed events: %w", err)
	}
	if summary.Attempted == 0 {
		j.logg.Debug(logCtx, "no webhook events to replay")
		return nil
	}
	j.logg.Info(logCtx, "webhook replay batch done")
	return nil
}
