package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], m.err
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "gs:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return m.err
}

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || seen {
		t.Fatalf("expected first delivery to pass, seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || !seen {
		t.Fatalf("expected redelivery to be flagged, seen=%v err=%v", seen, err)
	}
	if ttl := store.ttls["gs:idempotency:gateway-webhook:evt_1"]; ttl != time.Hour {
		t.Fatalf("expected ttl of one hour, got %s", ttl)
	}
}

func TestIdempotencyGuardRelease(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Minute, "test")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()
	if _, err := guard.CheckAndMark(ctx, "evt_2"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := guard.Release(ctx, "evt_2"); err != nil {
		t.Fatalf("release: %v", err)
	}
	seen, err := guard.CheckAndMark(ctx, "evt_2")
	if err != nil || seen {
		t.Fatalf("expected released event to pass again, seen=%v err=%v", seen, err)
	}
}

func TestIdempotencyGuardErrors(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Minute, ""); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), -time.Second, ""); err == nil {
		t.Fatal("expected error for negative ttl")
	}

	store := newMemoryStore()
	store.err = errors.New("connection refused")
	guard, err := NewIdempotencyGuard(store, time.Minute, "")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), "evt_3"); err == nil {
		t.Fatal("expected store error to surface")
	}
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty event id")
	}
}
