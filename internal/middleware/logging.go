package middleware

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/auth"
	"github.com/graphmux/graphmux/internal/settings"
)

// LoggingMiddleware writes one structured log line per root field. Introspection
// meta fields are skipped unless log_introspection is set, since GraphiQL polls
// them constantly.
type LoggingMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	logger     zerolog.Logger
}

// NewLogging creates the request logging middleware.
func NewLogging(schemaName string, ms settings.MiddlewareSettings, logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		schemaName: schemaName,
		ms:         ms,
		logger:     logger.With().Str("component", "graphql-logging").Str("schema", schemaName).Logger(),
	}
}

func (m *LoggingMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnableLogging || !info.IsRootField() {
		return next(root, info, args)
	}
	if info.IsIntrospectionField() && !m.ms.LogIntrospection {
		return next(root, info, args)
	}

	userID := "anonymous"
	if user := auth.UserFromContext(info.Ctx); user != nil {
		userID = user.ID
	}

	m.logger.Debug().
		Str("operation", info.OperationType).
		Str("operation_name", info.OperationName).
		Str("field", info.FieldName).
		Str("user", userID).
		Msg("resolving")

	start := time.Now()
	result, err := next(root, info, args)
	entry := m.logger.Info()
	if err != nil {
		entry = m.logger.Warn().Err(err)
	}
	entry.
		Str("operation", info.OperationType).
		Str("operation_name", info.OperationName).
		Str("field", info.FieldName).
		Str("user", userID).
		Dur("duration", time.Since(start)).
		Msg("resolved")
	return result, err
}
