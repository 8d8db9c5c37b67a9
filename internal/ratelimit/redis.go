package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements a fixed-window limiter on Redis, shared across worker
// processes.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// RedisLimiterConfig holds the Redis limiter configuration.
type RedisLimiterConfig struct {
	Limit  int
	Window time.Duration
	Prefix string
}

// NewRedisLimiter creates a fixed-window limiter on an existing client.
func NewRedisLimiter(client *redis.Client, cfg RedisLimiterConfig) *RedisLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "graphmux:ratelimit:"
	}
	return &RedisLimiter{
		client: client,
		limit:  cfg.Limit,
		window: cfg.Window,
		prefix: cfg.Prefix,
	}
}

// Allow counts the request in the current window and reports whether it fits.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	fullKey := r.prefix + key

	count, err := r.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return nil, err
	}
	// First hit in a window owns setting the expiry.
	if count == 1 {
		if err := r.client.Expire(ctx, fullKey, r.window).Err(); err != nil {
			return nil, err
		}
	}

	ttl, err := r.client.TTL(ctx, fullKey).Result()
	if err != nil || ttl < 0 {
		ttl = r.window
	}

	info := &Info{
		Limit:   r.limit,
		ResetAt: time.Now().Add(ttl),
		Allowed: count <= int64(r.limit),
	}
	if remaining := r.limit - int(count); remaining > 0 {
		info.Remaining = remaining
	}
	return info, nil
}
