package middleware

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/graphmux/graphmux/internal/complexity"
	"github.com/graphmux/graphmux/internal/ratelimit"
	"github.com/graphmux/graphmux/internal/settings"
	"github.com/graphmux/graphmux/internal/validation"
)

// Rate limit bucket names. The login bucket is stricter than the general one.
const (
	BucketGraphQL = "graphql"
	BucketLogin   = "graphql_login"
)

// Factories hands out the shared, thread-safe collaborators middleware instances
// need: rate limiters, complexity analyzers, and input validators, one per schema
// (and per bucket for limiters), created lazily and cached.
type Factories struct {
	settings *settings.Resolver
	// redis is optional; when nil the in-memory limiter backs rate limiting and
	// limits apply per worker process.
	redis *redis.Client

	mu         sync.Mutex
	limiters   map[string]ratelimit.Limiter
	analyzers  map[string]*complexity.Analyzer
	validators map[string]*validation.InputValidator
}

// NewFactories creates a Factories over the settings resolver. redisClient may be
// nil.
func NewFactories(res *settings.Resolver, redisClient *redis.Client) *Factories {
	return &Factories{
		settings:   res,
		redis:      redisClient,
		limiters:   make(map[string]ratelimit.Limiter),
		analyzers:  make(map[string]*complexity.Analyzer),
		validators: make(map[string]*validation.InputValidator),
	}
}

// RateLimiter returns the limiter for a schema and bucket.
func (f *Factories) RateLimiter(schemaName, bucket string) ratelimit.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := schemaName + ":" + bucket
	if limiter, ok := f.limiters[key]; ok {
		return limiter
	}

	ms := settings.MiddlewareSettingsFromSchema(f.settings, schemaName)
	limit := ms.RateLimitPerMinute
	if bucket == BucketLogin {
		limit = ms.LoginRateLimit
	}

	var limiter ratelimit.Limiter
	if f.redis != nil {
		limiter = ratelimit.NewRedisLimiter(f.redis, ratelimit.RedisLimiterConfig{
			Limit:  limit,
			Window: time.Minute,
			Prefix: "graphmux:ratelimit:" + key + ":",
		})
	} else {
		limiter = ratelimit.NewTokenBucket(ratelimit.TokenBucketConfig{
			Capacity:        limit,
			RefillRate:      time.Minute,
			CleanupInterval: 5 * time.Minute,
		})
	}
	f.limiters[key] = limiter
	return limiter
}

// ComplexityAnalyzer returns the analyzer for a schema.
func (f *Factories) ComplexityAnalyzer(schemaName string) *complexity.Analyzer {
	f.mu.Lock()
	defer f.mu.Unlock()

	if analyzer, ok := f.analyzers[schemaName]; ok {
		return analyzer
	}
	ms := settings.MiddlewareSettingsFromSchema(f.settings, schemaName)
	analyzer := complexity.New(ms.MaxQueryDepth, ms.MaxQueryComplexity)
	f.analyzers[schemaName] = analyzer
	return analyzer
}

// InputValidator returns the validator for a schema.
func (f *Factories) InputValidator(schemaName string) *validation.InputValidator {
	f.mu.Lock()
	defer f.mu.Unlock()

	if validator, ok := f.validators[schemaName]; ok {
		return validator
	}
	validator := validation.New(validation.Config{})
	f.validators[schemaName] = validator
	return validator
}

// Invalidate drops cached collaborators for a schema so the next request rebuilds
// them from current settings.
func (f *Factories) Invalidate(schemaName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.limiters, schemaName+":"+BucketGraphQL)
	delete(f.limiters, schemaName+":"+BucketLogin)
	delete(f.analyzers, schemaName)
	delete(f.validators, schemaName)
}
