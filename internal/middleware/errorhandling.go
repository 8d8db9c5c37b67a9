package middleware

import (
	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/settings"
)

// ErrorHandlingMiddleware classifies and logs resolver errors. Errors are always
// re-raised unchanged; classification affects the log level only, so upstream
// middleware and the executor see exactly the error the resolver produced.
type ErrorHandlingMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	logger     zerolog.Logger
}

// NewErrorHandling creates the error handling middleware.
func NewErrorHandling(schemaName string, ms settings.MiddlewareSettings, logger zerolog.Logger) *ErrorHandlingMiddleware {
	return &ErrorHandlingMiddleware{
		schemaName: schemaName,
		ms:         ms,
		logger:     logger.With().Str("component", "graphql-errors").Str("schema", schemaName).Logger(),
	}
}

func (m *ErrorHandlingMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	result, err := next(root, info, args)
	if err == nil || !m.ms.EnableErrorHandling {
		return result, err
	}

	switch {
	case IsPermissionError(err):
		m.logger.Info().Err(err).Str("field", info.FieldName).Msg("permission denied")
	case IsValidationError(err):
		m.logger.Info().Err(err).Str("field", info.FieldName).Msg("validation failed")
	default:
		m.logger.Error().Err(err).
			Str("field", info.FieldName).
			Str("operation", info.OperationName).
			Msg("unexpected resolver error")
	}
	return result, err
}
