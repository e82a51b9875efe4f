package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter keyed by client.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// RateLimitResult describes the state of a window after one hit.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// NewRateLimiter creates a limiter allowing limit hits per window.
func NewRateLimiter(c *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: c, prefix: prefix, limit: limit, window: window}
}

// Limit returns the configured hits per window
func (l *RateLimiter) Limit() int {
	return l.limit
}

// Allow records one hit for key and reports whether it is within the limit.
func (l *RateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	fullKey := l.prefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	ttl := pipe.PTTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	count := int(incr.Val())
	// first hit of a window, or a key that lost its expiry
	if count == 1 || ttl.Val() < 0 {
		if err := l.client.PExpire(ctx, fullKey, l.window).Err(); err != nil {
			return nil, err
		}
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	resetIn := ttl.Val()
	if resetIn < 0 {
		resetIn = l.window
	}

	return &RateLimitResult{
		Allowed:   count <= l.limit,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}
