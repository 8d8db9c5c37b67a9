package middleware

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/settings"
)

// loginFields are root mutation fields throttled by the stricter login bucket.
var loginFields = map[string]bool{
	"login":        true,
	"tokenauth":    true,
	"signin":       true,
	"authenticate": true,
}

// RateLimitingMiddleware throttles root fields per caller. Authenticated callers
// are keyed by user id, anonymous ones by remote address. A limiter failure
// (unreachable Redis) is logged and the request is allowed through.
type RateLimitingMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	factories  *Factories
	logger     zerolog.Logger
}

// NewRateLimiting creates the rate limiting middleware.
func NewRateLimiting(schemaName string, ms settings.MiddlewareSettings, factories *Factories, logger zerolog.Logger) *RateLimitingMiddleware {
	return &RateLimitingMiddleware{
		schemaName: schemaName,
		ms:         ms,
		factories:  factories,
		logger:     logger.With().Str("component", "ratelimit-middleware").Str("schema", schemaName).Logger(),
	}
}

func (m *RateLimitingMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnableRateLimiting || m.factories == nil || !info.IsRootField() {
		return next(root, info, args)
	}

	key := info.ClientKey
	if key == "" {
		key = "anonymous"
	}

	// Every root field counts against the generic bucket; login-class fields are
	// additionally throttled by the stricter login bucket.
	if err := m.check(info, BucketGraphQL, key, "rate limit exceeded, try again later"); err != nil {
		return nil, err
	}
	if info.OperationType == "mutation" && loginFields[strings.ToLower(info.FieldName)] {
		if err := m.check(info, BucketLogin, key, "login rate limit exceeded, try again later"); err != nil {
			return nil, err
		}
	}
	return next(root, info, args)
}

func (m *RateLimitingMiddleware) check(info *ResolveInfo, bucket, key, refusal string) error {
	limiter := m.factories.RateLimiter(m.schemaName, bucket)
	limitInfo, err := limiter.Allow(info.Ctx, key)
	if err != nil {
		m.logger.Warn().Err(err).Str("bucket", bucket).Msg("rate limiter unavailable, allowing request")
		return nil
	}
	if !limitInfo.Allowed {
		return NewPermissionError("rate_limited", refusal)
	}
	return nil
}
