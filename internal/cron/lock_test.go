package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestRedisLockIsPerJob(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(store, "cron", time.Minute)
	ctx := context.Background()

	if ok, _ := first.Acquire(ctx, "sweep"); !ok {
		t.Fatal("expected first worker to acquire sweep")
	}
	if ok, _ := second.Acquire(ctx, "sweep"); ok {
		t.Fatal("expected second worker to be locked out of sweep")
	}
	if ok, _ := second.Acquire(ctx, "purge"); !ok {
		t.Fatal("expected other jobs to stay available")
	}

	if err := second.Release(ctx, "sweep"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := store.values["cron:sweep"]; !ok {
		t.Fatal("non-owner must not release the lease")
	}
	if err := first.Release(ctx, "sweep"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := store.values["cron:sweep"]; ok {
		t.Fatal("owner release should delete the key")
	}
}

func TestRedisLockLeavesExpiredLeaseAlone(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "cron", time.Minute)
	ctx := context.Background()

	if ok, _ := lock.Acquire(ctx, "sweep"); !ok {
		t.Fatal("expected acquire")
	}
	store.values["cron:sweep"] = "someone-else"
	if err := lock.Release(ctx, "sweep"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.values["cron:sweep"] != "someone-else" {
		t.Fatal("release removed a lease held by another worker")
	}
}
