package middleware

import (
	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/auth"
	"github.com/graphmux/graphmux/internal/settings"
)

// AccessGuardMiddleware enforces schema-level access policy at the operation root:
// a schema may require authentication for every operation, and may disable
// introspection. Nested fields pass through untouched.
type AccessGuardMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	ss         settings.SchemaSettings
	logger     zerolog.Logger
}

// NewAccessGuard creates the access guard middleware.
func NewAccessGuard(schemaName string, ms settings.MiddlewareSettings, ss settings.SchemaSettings, logger zerolog.Logger) *AccessGuardMiddleware {
	return &AccessGuardMiddleware{
		schemaName: schemaName,
		ms:         ms,
		ss:         ss,
		logger:     logger.With().Str("component", "access-guard").Str("schema", schemaName).Logger(),
	}
}

func (m *AccessGuardMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnableAccessGuard || !info.IsRootField() {
		return next(root, info, args)
	}

	if info.IsIntrospectionField() && !m.ss.EnableIntrospection {
		return nil, NewPermissionError("INTROSPECTION_DISABLED",
			"introspection is disabled for this schema")
	}

	if m.ss.AuthenticationRequired {
		if user := auth.UserFromContext(info.Ctx); user == nil {
			return nil, NewPermissionError("authentication_required",
				"authentication required")
		}
	}
	return next(root, info, args)
}
