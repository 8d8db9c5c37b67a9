package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements an in-memory token bucket limiter. Buckets refill fully
// once per refill interval and idle buckets are swept periodically.
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int
	refillRate time.Duration
	cleanup    *time.Ticker
	done       chan struct{}
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// TokenBucketConfig holds configuration for the token bucket limiter.
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens in a bucket.
	Capacity int
	// RefillRate is how often a bucket refills to capacity.
	RefillRate time.Duration
	// CleanupInterval is how often idle buckets are removed. Zero disables sweeping.
	CleanupInterval time.Duration
}

// NewTokenBucket creates a token bucket limiter.
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	if config.Capacity <= 0 {
		config.Capacity = 100
	}
	if config.RefillRate <= 0 {
		config.RefillRate = time.Minute
	}
	tb := &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   config.Capacity,
		refillRate: config.RefillRate,
		done:       make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		tb.cleanup = time.NewTicker(config.CleanupInterval)
		go tb.cleanupLoop()
	}
	return tb
}

// Allow checks if a request should be allowed for the given key.
func (tb *TokenBucket) Allow(_ context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	if now.Sub(b.lastRefill) >= tb.refillRate {
		b.tokens = tb.capacity
		b.lastRefill = now
	}

	info := &Info{
		Limit:   tb.capacity,
		ResetAt: b.lastRefill.Add(tb.refillRate),
	}
	if b.tokens <= 0 {
		info.Remaining = 0
		info.Allowed = false
		return info, nil
	}

	b.tokens--
	info.Remaining = b.tokens
	info.Allowed = true
	return info, nil
}

// Close stops the cleanup goroutine.
func (tb *TokenBucket) Close() {
	if tb.cleanup != nil {
		tb.cleanup.Stop()
		close(tb.done)
	}
}

func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.done:
			return
		case <-tb.cleanup.C:
			tb.mu.Lock()
			cutoff := time.Now().Add(-2 * tb.refillRate)
			for key, b := range tb.buckets {
				if b.lastRefill.Before(cutoff) {
					delete(tb.buckets, key)
				}
			}
			tb.mu.Unlock()
		}
	}
}
