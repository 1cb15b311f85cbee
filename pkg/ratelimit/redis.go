package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// acquireScript drops expired leases, then adds one if a slot is free.
// Leases are scored by their expiry in unix milliseconds.
var acquireScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// releaseScript removes one lease and returns the remaining count.
var releaseScript = redis.NewScript(`
redis.call('ZREM', KEYS[1], ARGV[1])
return redis.call('ZCARD', KEYS[1])
`)

// RedisLimiter shares slots between processes through Redis. Each held slot
// is a lease with its own expiry, so slots of a crashed process lapse after
// the TTL even while others keep polling.
type RedisLimiter struct {
	redis  *redis.Client
	key    string
	limit  int
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	leases []string
}

// NewRedis creates a shared limiter. scope identifies the server the slots
// belong to, usually its base URL.
func NewRedis(redisClient *redis.Client, scope string, limit int, logger zerolog.Logger) (*RedisLimiter, error) {
	if redisClient == nil {
		return nil, errors.New("redis client is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0 (got %d)", limit)
	}
	return &RedisLimiter{
		redis:  redisClient,
		key:    KeyPrefix + scope,
		limit:  limit,
		ttl:    DefaultSlotTTL,
		logger: logger.With().Str("limiter_key", KeyPrefix+scope).Logger(),
		now:    time.Now,
	}, nil
}

// Acquire implements Limiter. It polls with a growing interval while every
// slot is taken.
func (l *RedisLimiter) Acquire(ctx context.Context) error {
	start := time.Now()
	wait := DefaultPollInterval
	waited := false
	lease := uuid.NewString()

	for {
		now := l.now()
		ok, err := acquireScript.Run(ctx, l.redis, []string{l.key},
			l.limit,
			now.UnixMilli(),
			now.Add(l.ttl).UnixMilli(),
			lease,
			l.ttl.Milliseconds(),
		).Int()
		if err != nil {
			return fmt.Errorf("acquire shared slot: %w", err)
		}
		if ok == 1 {
			l.mu.Lock()
			l.leases = append(l.leases, lease)
			l.mu.Unlock()
			if waited {
				limiterWaitSeconds.WithLabelValues("redis").Observe(time.Since(start).Seconds())
				l.logger.Debug().Dur("waited", time.Since(start)).Msg("Shared slot acquired after wait")
			}
			return nil
		}

		if !waited {
			waited = true
			limiterWaitsTotal.WithLabelValues("redis").Inc()
			l.logger.Debug().Int("limit", l.limit).Msg("Shared limiter saturated - waiting")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("acquire shared slot: %w", ctx.Err())
		case <-time.After(wait):
		}

		wait *= 2
		if wait > MaxPollInterval {
			wait = MaxPollInterval
		}
	}
}

// Release implements Limiter. A Release without a held lease is a no-op.
// Failures are logged; the lease expiry reclaims the slot.
func (l *RedisLimiter) Release(ctx context.Context) {
	l.mu.Lock()
	n := len(l.leases)
	if n == 0 {
		l.mu.Unlock()
		return
	}
	lease := l.leases[n-1]
	l.leases = l.leases[:n-1]
	l.mu.Unlock()

	// Release must work even when the batch context was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := releaseScript.Run(ctx, l.redis, []string{l.key}, lease).Err(); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to release shared slot")
	}
}

// State counts the leases that have not expired.
func (l *RedisLimiter) State(ctx context.Context) (SlotState, error) {
	from := fmt.Sprintf("(%d", l.now().UnixMilli())
	n, err := l.redis.ZCount(ctx, l.key, from, "+inf").Result()
	if err != nil {
		return SlotState{}, fmt.Errorf("count slot leases: %w", err)
	}
	return SlotState{InUse: int(n), Limit: l.limit}, nil
}
