package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

type fakePruner struct {
	cutoff time.Time
	calls  int
	err    error
}

func (f *fakePruner) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.record(cutoff)
}

func (f *fakePruner) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.record(cutoff)
}

func (f *fakePruner) record(cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

func TestOutboxRetentionUsesDefaultWindow(t *testing.T) {
	repo := &fakePruner{}
	job, err := NewOutboxRetentionJob(testLogger(), repo, 0)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	job.(*retentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.AddDate(0, 0, -defaultOutboxRetentionDays); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if job.Name() != "outbox-retention" {
		t.Fatalf("unexpected name %s", job.Name())
	}
}

func TestWebhookLogRetention(t *testing.T) {
	repo := &fakePruner{}
	job, err := NewWebhookLogRetentionJob(testLogger(), repo, 7)
	if err != nil {
		t.Fatalf("NewWebhookLogRetentionJob: %v", err)
	}
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	job.(*retentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
}

func TestRetentionPropagatesError(t *testing.T) {
	job, err := NewWebhookLogRetentionJob(testLogger(), &fakePruner{err: errors.New("db gone")}, 0)
	if err != nil {
		t.Fatalf("NewWebhookLogRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetentionRequiresRepository(t *testing.T) {
	if _, err := NewOutboxRetentionJob(testLogger(), nil, 0); err == nil {
		t.Fatal("expected error without repository")
	}
}
