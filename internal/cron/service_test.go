package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newTestService(t *testing.T, registry *Registry, lock Lock, m jobMetrics) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: registry,
		Lock:     lock,
		Metrics:  m,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunCycleRunsEveryJobAndCombinesErrors(t *testing.T) {
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	registry := NewRegistry()
	if err := registry.Register(bad, 0); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(ok, 0); err != nil {
		t.Fatalf("register: %v", err)
	}

	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	svc := newTestService(t, registry, lock, metrics.NewCronJobMetrics(reg))

	err := svc.runCycle(context.Background())
	if err == nil || err.Error() != "bad: boom" {
		t.Fatalf("expected combined job error, got %v", err)
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected both jobs to run once, got ok=%d bad=%d", ok.runs, bad.runs)
	}
	if lock.releases != 1 || lock.held {
		t.Fatalf("expected lock released")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := counterValue(families, "bad", "failure"); got != 1 {
		t.Fatalf("expected one failure for bad, got %v", got)
	}
	if got := counterValue(families, "ok", "success"); got != 1 {
		t.Fatalf("expected one success for ok, got %v", got)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "job"}
	registry := NewRegistry()
	_ = registry.Register(job, 0)
	svc := newTestService(t, registry, &fakeLock{held: true}, nil)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran without the lock")
	}
}

func TestRunCycleLockError(t *testing.T) {
	svc := newTestService(t, NewRegistry(), &fakeLock{err: errors.New("redis down")}, nil)
	if err := svc.runCycle(context.Background()); err == nil {
		t.Fatal("expected lock error")
	}
}

func TestRunCycleHonoursJobCadence(t *testing.T) {
	fast := &countingJob{name: "fast"}
	daily := &countingJob{name: "daily"}
	registry := NewRegistry()
	_ = registry.Register(fast, 0)
	_ = registry.Register(daily, 24*time.Hour)

	svc := newTestService(t, registry, &fakeLock{}, nil)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if err := svc.runCycle(context.Background()); err != nil {
			t.Fatalf("runCycle: %v", err)
		}
		now = now.Add(5 * time.Minute)
	}
	if fast.runs != 3 || daily.runs != 1 {
		t.Fatalf("expected fast=3 daily=1, got fast=%d daily=%d", fast.runs, daily.runs)
	}

	now = now.Add(24 * time.Hour)
	_ = svc.runCycle(context.Background())
	if daily.runs != 2 {
		t.Fatalf("expected daily job to run again after a day, got %d", daily.runs)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&countingJob{name: "a"}, 0); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(&countingJob{name: "a"}, time.Hour); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if err := registry.Register(nil, 0); err == nil {
		t.Fatal("expected nil job error")
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "a" {
		t.Fatalf("unexpected names %v", names)
	}
}

func counterValue(families []*dto.MetricFamily, job, outcome string) float64 {
	for _, family := range families {
		if family.GetName() != "cron_job_runs_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, label := range metric.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}
			if labels["job"] == job && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
