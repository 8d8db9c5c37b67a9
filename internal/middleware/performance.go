package middleware

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/settings"
)

// PerformanceMiddleware times every field resolution and warns about fields
// slower than the configured threshold.
type PerformanceMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	threshold  time.Duration
	logger     zerolog.Logger
}

// NewPerformance creates the performance middleware.
func NewPerformance(schemaName string, ms settings.MiddlewareSettings, logger zerolog.Logger) *PerformanceMiddleware {
	return &PerformanceMiddleware{
		schemaName: schemaName,
		ms:         ms,
		threshold:  time.Duration(ms.SlowFieldThresholdMS) * time.Millisecond,
		logger:     logger.With().Str("component", "performance-middleware").Str("schema", schemaName).Logger(),
	}
}

func (m *PerformanceMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnablePerformance || m.threshold <= 0 {
		return next(root, info, args)
	}

	start := time.Now()
	result, err := next(root, info, args)
	elapsed := time.Since(start)
	if elapsed >= m.threshold {
		m.logger.Warn().
			Str("field", info.FieldName).
			Str("operation", info.OperationName).
			Dur("elapsed", elapsed).
			Dur("threshold", m.threshold).
			Msg("slow field resolution")
	}
	return result, err
}
