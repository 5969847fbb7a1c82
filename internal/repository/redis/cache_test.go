package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/nrodcast/account-service/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestCacheRepository_SetGetDelete(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "reset-password:user@example.com", "code-1", 24*time.Hour); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := repo.Get(ctx, "reset-password:user@example.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "code-1" {
		t.Fatalf("unexpected value: %s", value)
	}

	remaining := server.TTL("reset-password:user@example.com")
	if remaining <= 0 || remaining > 24*time.Hour {
		t.Fatalf("expected ttl within (0, 24h], got %v", remaining)
	}

	if err := repo.Delete(ctx, "reset-password:user@example.com"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := repo.Get(ctx, "reset-password:user@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCacheRepository_SetOverwritesValueAndTTL(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "k", "old", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := repo.Set(ctx, "k", "new", time.Hour); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := repo.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "new" {
		t.Fatalf("expected newest value to win, got %s", value)
	}

	if remaining := server.TTL("k"); remaining <= time.Minute {
		t.Fatalf("expected ttl to be reset, got %v", remaining)
	}
}

func TestCacheRepository_GetExpired(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, err := repo.Get(ctx, "k"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired key, got %v", err)
	}
}

func TestCacheRepository_ConsumeIfMatch(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "k", "code-1", time.Hour); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	// Wrong value leaves the key in place.
	consumed, err := repo.ConsumeIfMatch(ctx, "k", "code-2")
	if err != nil {
		t.Fatalf("ConsumeIfMatch returned error: %v", err)
	}
	if consumed {
		t.Fatal("expected mismatch not to consume")
	}
	if _, err := repo.Get(ctx, "k"); err != nil {
		t.Fatalf("key should survive a mismatch: %v", err)
	}

	// Matching value consumes exactly once.
	consumed, err = repo.ConsumeIfMatch(ctx, "k", "code-1")
	if err != nil {
		t.Fatalf("ConsumeIfMatch returned error: %v", err)
	}
	if !consumed {
		t.Fatal("expected match to consume")
	}

	consumed, err = repo.ConsumeIfMatch(ctx, "k", "code-1")
	if err != nil {
		t.Fatalf("ConsumeIfMatch returned error: %v", err)
	}
	if consumed {
		t.Fatal("second consume must fail")
	}
}

func TestCacheRepository_ConsumeIfMatchMissingKey(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewCacheRepository(client)

	consumed, err := repo.ConsumeIfMatch(context.Background(), "absent", "code")
	if err != nil {
		t.Fatalf("ConsumeIfMatch returned error: %v", err)
	}
	if consumed {
		t.Fatal("expected absent key not to consume")
	}
}
