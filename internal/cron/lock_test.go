package cron

import (
	"context"
	"testing"
	"time"
)

type fakeLockStore struct {
	holder   string
	ttl      time.Duration
	released []string
}

func (f *fakeLockStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if f.holder != "" {
		return "", false, nil
	}
	f.holder = "token-" + name
	f.ttl = ttl
	return f.holder, true, nil
}

func (f *fakeLockStore) ReleaseLock(ctx context.Context, name, token string) error {
	f.released = append(f.released, token)
	if token == f.holder {
		f.holder = ""
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := &fakeLockStore{}
	lock, err := NewRedisLock(store, "cron:test", 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected lock, got ok=%v err=%v", ok, err)
	}
	if store.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", store.ttl)
	}

	other, _ := NewRedisLock(store, "cron:test", time.Minute)
	if ok, _ := other.Acquire(ctx); ok {
		t.Fatal("second holder acquired a held lock")
	}
	if err := other.Release(ctx); err != nil {
		t.Fatalf("release without holding: %v", err)
	}
	if len(store.released) != 0 {
		t.Fatalf("non-holder released the lock")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.holder != "" || len(store.released) != 1 {
		t.Fatalf("lock not released: %+v", store)
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "x", 0); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewRedisLock(&fakeLockStore{}, "", 0); err == nil {
		t.Fatal("expected error for empty name")
	}
}
