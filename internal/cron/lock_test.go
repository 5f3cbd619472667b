package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/soundmarket-backend/pkg/redis"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestRedisLockIsExclusive(t *testing.T) {
	_, client := newMiniredisClient(t)
	ctx := context.Background()

	first, err := NewRedisLock(client, "cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, err := NewRedisLock(client, "cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected first acquire, ok=%v err=%v", ok, err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || ok {
		t.Fatalf("expected second acquire to fail, ok=%v err=%v", ok, err)
	}

	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	ok, _ = second.Acquire(ctx)
	if ok {
		t.Fatal("non-owner release must not free the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release, ok=%v err=%v", ok, err)
	}
}

func TestRedisLockExpires(t *testing.T) {
	srv, client := newMiniredisClient(t)
	ctx := context.Background()

	first, _ := NewRedisLock(client, "cron", time.Minute)
	second, _ := NewRedisLock(client, "cron", time.Minute)
	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	srv.FastForward(2 * time.Minute)
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected acquire after ttl")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if !srv.Exists(client.LockKey("cron")) {
		t.Fatal("stale owner must not delete the new holder's key")
	}
}
