package kv

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Live backend tests run only when a disposable server is pointed to by
// BARBERBOOK_TEST_REDIS_ADDR / BARBERBOOK_TEST_DATABASE_URL.

func TestRedisStore_Live(t *testing.T) {
	addr := os.Getenv("BARBERBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BARBERBOOK_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	exerciseStore(t, NewRedisStoreFromClient(rdb))
}

func TestPostgresStore_Live(t *testing.T) {
	url := os.Getenv("BARBERBOOK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BARBERBOOK_TEST_DATABASE_URL not set")
	}
	s, err := NewPostgresStore(context.Background(), url)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	exerciseStore(t, s)
}

func TestRedisStore_ClosedWithoutServer(t *testing.T) {
	// Nothing listens on port 1; no call below may reach the network.
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	ctx := context.Background()
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get: expected ErrClosed, got %v", err)
	}
	if err := s.Set(ctx, "k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set: expected ErrClosed, got %v", err)
	}
	if err := s.Delete(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Delete: expected ErrClosed, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Ping: expected ErrClosed, got %v", err)
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected ping failure for unreachable redis")
	}
	if _, err := Open(ctx, Config{Backend: BackendRedis, RedisAddr: "127.0.0.1:1", RedisDB: 3}); err == nil {
		t.Fatal("expected Open to surface the ping failure")
	}
}

func TestPostgresStore_ClosedWithoutServer(t *testing.T) {
	s := &PostgresStore{}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ctx := context.Background()
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get: expected ErrClosed, got %v", err)
	}
	if err := s.Set(ctx, "k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set: expected ErrClosed, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Ping: expected ErrClosed, got %v", err)
	}
}

func TestNewPostgresStore_BadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewPostgresStore(ctx, "  "); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewPostgresStore(ctx, "postgres://%zz@localhost/db"); err == nil {
		t.Fatal("expected error for malformed url")
	}
	if _, err := Open(ctx, Config{Backend: BackendPostgres}); err == nil {
		t.Fatal("expected Open to require a database url")
	}
}
