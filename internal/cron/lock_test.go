package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeLockStore struct {
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, taken := f.values[key]; taken {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeLockStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockKeyIsEnvScoped(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "staging", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if ok, err := lock.Acquire(context.Background()); err != nil || !ok {
		t.Fatalf("Acquire = (%v, %v), want acquired", ok, err)
	}
	if _, taken := store.values["dv:cron:staging:lock"]; !taken {
		t.Fatalf("lock stored under unexpected key: %v", store.values)
	}
}

func TestRedisLockSecondAcquireIsRefused(t *testing.T) {
	store := newFakeLockStore()
	first, _ := NewRedisLock(store, "prod", time.Minute)
	second, _ := NewRedisLock(store, "prod", time.Minute)

	if ok, _ := first.Acquire(context.Background()); !ok {
		t.Fatal("first worker should acquire")
	}
	if ok, _ := second.Acquire(context.Background()); ok {
		t.Fatal("second worker must be refused while the lock is held")
	}
	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := second.Acquire(context.Background()); !ok {
		t.Fatal("second worker should acquire after release")
	}
}

func TestRedisLockReleaseLeavesForeignOwner(t *testing.T) {
	store := newFakeLockStore()
	lock, _ := NewRedisLock(store, "prod", time.Minute)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("acquire failed")
	}

	// The TTL elapsed and another worker took the key.
	store.values["dv:cron:prod:lock"] = "someone-else"
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.values["dv:cron:prod:lock"] != "someone-else" {
		t.Fatal("release deleted a lock owned by another worker")
	}
}
