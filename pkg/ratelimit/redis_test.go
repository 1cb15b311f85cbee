package ratelimit

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedis_Validation(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	if _, err := NewRedis(nil, "scope", 2, logger); err == nil {
		t.Error("expected error for nil redis client")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	if _, err := NewRedis(client, "scope", 0, logger); err == nil {
		t.Error("expected error for zero limit")
	}
}

func TestRedisLimiter_AcquireRelease(t *testing.T) {
	client := setupTestRedis(t)
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()

	l, err := NewRedis(client, "https://jss.example.com:8443", 2, logger)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
	}

	state, err := l.State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !state.Saturated() {
		t.Errorf("state = %+v, want saturated", state)
	}

	l.Release(ctx)
	l.Release(ctx)
	l.Release(ctx) // extra release must not go negative

	state, _ = l.State(ctx)
	if state.InUse != 0 {
		t.Errorf("InUse = %d after releases, want 0", state.InUse)
	}
}

func TestRedisLimiter_ExpiredLeaseIsReclaimed(t *testing.T) {
	client := setupTestRedis(t)
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()
	scope := "https://jss.example.com:8443"

	// crashed takes the only slot and never releases it.
	crashed, err := NewRedis(client, scope, 1, logger)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	if err := crashed.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	expiry, err := client.ZScore(ctx, KeyPrefix+scope, crashed.leases[0]).Result()
	if err != nil {
		t.Fatalf("ZScore() error = %v", err)
	}

	waiter, err := NewRedis(client, scope, 1, logger)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}

	// Polling while the lease is live must not extend it.
	for i := 0; i < 3; i++ {
		cctx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
		err := waiter.Acquire(cctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Acquire() #%d error = %v, want deadline exceeded", i, err)
		}
	}
	after, err := client.ZScore(ctx, KeyPrefix+scope, crashed.leases[0]).Result()
	if err != nil {
		t.Fatalf("ZScore() error = %v", err)
	}
	if after != expiry {
		t.Errorf("lease expiry moved from %v to %v while waiting", expiry, after)
	}

	// Once the lease has lapsed the slot is free again.
	waiter.now = func() time.Time { return time.Now().Add(DefaultSlotTTL + time.Second) }
	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := waiter.Acquire(cctx); err != nil {
		t.Fatalf("Acquire() after lease expiry error = %v", err)
	}

	state, err := waiter.State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.InUse != 1 {
		t.Errorf("InUse = %d, want 1", state.InUse)
	}
}

func TestRedisLimiter_UnmatchedReleaseKeepsTTL(t *testing.T) {
	client := setupTestRedis(t)
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()
	scope := "scope"

	holder, err := NewRedis(client, scope, 2, logger)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	other, err := NewRedis(client, scope, 2, logger)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}

	if err := holder.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	other.Release(ctx)
	other.Release(ctx)

	state, err := holder.State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.InUse != 1 {
		t.Errorf("InUse = %d after unmatched releases, want 1", state.InUse)
	}

	ttl, err := client.PTTL(ctx, KeyPrefix+scope).Result()
	if err != nil {
		t.Fatalf("PTTL() error = %v", err)
	}
	if ttl <= 0 || ttl > DefaultSlotTTL {
		t.Errorf("lease set TTL = %v, want within (0, %v]", ttl, DefaultSlotTTL)
	}
}
