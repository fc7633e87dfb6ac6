package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter implements fixed-window counters over Redis. Each key is one
// window; the TTL doubles as the window reset.
type Limiter struct {
	redis *redis.Client
}

func NewLimiter(redisClient *redis.Client) *Limiter {
	return &Limiter{redis: redisClient}
}

// Bump increments the counter and refreshes its TTL in a single pipelined
// round trip, so a counter can never outlive its window.
func (l *Limiter) Bump(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("bump %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Check compares the current counter against limit. When the limit is
// reached it returns the remaining window as a backoff hint, clamped to at
// least one second.
func (l *Limiter) Check(ctx context.Context, key string, limit int) (allowed bool, retryAfter time.Duration, err error) {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, 0, nil
		}
		return false, 0, fmt.Errorf("check %s: %w", key, err)
	}

	if count < int64(limit) {
		return true, 0, nil
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return false, ttl, nil
}

// Remaining returns the window left on a key, or zero for a missing key.
func (l *Limiter) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *Limiter) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset counters: %w", err)
	}
	return nil
}
