package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// RateLimiter : fenêtre fixe par clé (INCR + expiration posée au premier hit)
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	key = "ratelimit:" + key

	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, err
	}

	reset := ttl.Val()
	if reset < 0 {
		if err := l.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return RateLimitResult{}, err
		}
		reset = window
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}
