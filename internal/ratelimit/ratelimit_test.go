package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan:
// 1. Test token bucket allows up to capacity then denies
// 2. Test token bucket refills after the interval
// 3. Test keys are tracked independently
// 4. Test redis fixed window allows up to the limit then denies
// 5. Test redis window resets after expiry

// Test: token bucket allows up to capacity then denies
func TestTokenBucket_Capacity(t *testing.T) {
	tb := NewTokenBucket(TokenBucketConfig{Capacity: 3, RefillRate: time.Hour})
	defer tb.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := tb.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
	}

	info, err := tb.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 3, info.Limit)
}

// Test: token bucket refills after the interval
func TestTokenBucket_Refill(t *testing.T) {
	tb := NewTokenBucket(TokenBucketConfig{Capacity: 1, RefillRate: 10 * time.Millisecond})
	defer tb.Close()
	ctx := context.Background()

	info, err := tb.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = tb.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	time.Sleep(15 * time.Millisecond)

	info, err = tb.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

// Test: distinct keys get distinct buckets
func TestTokenBucket_IndependentKeys(t *testing.T) {
	tb := NewTokenBucket(TokenBucketConfig{Capacity: 1, RefillRate: time.Hour})
	defer tb.Close()
	ctx := context.Background()

	info, err := tb.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = tb.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = tb.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
}

// Test: redis fixed window allows up to the limit then denies
func TestRedisLimiter_Window(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiter(client, RedisLimiterConfig{Limit: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		info, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
	}

	info, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
}

// Test: redis window resets after expiry
func TestRedisLimiter_Reset(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiter(client, RedisLimiterConfig{Limit: 1, Window: time.Second})
	ctx := context.Background()

	info, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	mr.FastForward(2 * time.Second)

	info, err = limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}
