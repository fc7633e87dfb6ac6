package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type LoginGuardConfig struct {
	MaxAttempts   int
	BlockDuration time.Duration
}

// LoginGuard tracks failed login attempts per identifier and sets a block
// key once the threshold is reached. While the block key exists logins are
// rejected outright; a later success never clears the block early.
type LoginGuard struct {
	redis *redis.Client
	cfg   LoginGuardConfig
}

func NewLoginGuard(redisClient *redis.Client, cfg LoginGuardConfig) *LoginGuard {
	return &LoginGuard{redis: redisClient, cfg: cfg}
}

func loginAttemptsKey(identifier string) string { return "login:attempts:" + identifier }
func loginBlockKey(identifier string) string    { return "login:block:" + identifier }

// Blocked reports whether the identifier is locked out, with the remaining
// lockout duration.
func (g *LoginGuard) Blocked(ctx context.Context, identifier string) (bool, time.Duration, error) {
	ttl, err := g.redis.TTL(ctx, loginBlockKey(identifier)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("login block ttl: %w", err)
	}
	if ttl <= 0 {
		// -2 missing key, -1 no expiry; neither counts as a block here.
		return false, 0, nil
	}
	return true, ttl, nil
}

// RecordFailure bumps the failure counter and, at the threshold, sets the
// block key for the full lockout duration. Returns the attempts used and
// whether the identifier is now blocked.
func (g *LoginGuard) RecordFailure(ctx context.Context, identifier string) (int, bool, error) {
	key := loginAttemptsKey(identifier)

	var incr *redis.IntCmd
	_, err := g.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, g.cfg.BlockDuration)
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("record login failure: %w", err)
	}

	count := int(incr.Val())
	if count < g.cfg.MaxAttempts {
		return count, false, nil
	}

	if err := g.redis.SetEx(ctx, loginBlockKey(identifier), "1", g.cfg.BlockDuration).Err(); err != nil {
		return count, false, fmt.Errorf("set login block: %w", err)
	}
	return count, true, nil
}

// Clear resets the failure counter after a successful login. The block key
// is deliberately left alone.
func (g *LoginGuard) Clear(ctx context.Context, identifier string) error {
	if err := g.redis.Del(ctx, loginAttemptsKey(identifier)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("clear login attempts: %w", err)
	}
	return nil
}

// MaxAttempts exposes the configured threshold for remaining-attempt hints.
func (g *LoginGuard) MaxAttempts() int {
	return g.cfg.MaxAttempts
}
