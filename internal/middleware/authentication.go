package middleware

import (
	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/auth"
	"github.com/graphmux/graphmux/internal/settings"
)

// AuthenticationMiddleware runs at every field. It resolves the authenticated user
// from the request context and rebinds the rate-limit key to the user identity so
// downstream middleware see a stable caller. Enforcement of schema-level
// authentication happens in the access guard at the operation root.
type AuthenticationMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	logger     zerolog.Logger
}

// NewAuthentication creates the authentication middleware.
func NewAuthentication(schemaName string, ms settings.MiddlewareSettings, logger zerolog.Logger) *AuthenticationMiddleware {
	return &AuthenticationMiddleware{
		schemaName: schemaName,
		ms:         ms,
		logger:     logger.With().Str("component", "auth-middleware").Str("schema", schemaName).Logger(),
	}
}

func (m *AuthenticationMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnableAuthentication {
		return next(root, info, args)
	}

	if user := auth.UserFromContext(info.Ctx); user != nil && info.ClientKey == "" {
		info.ClientKey = user.ID
	}
	return next(root, info, args)
}

// FieldPermissionMiddleware enforces per-field role requirements declared in the
// security settings block as field_permissions: {fieldName: [role, ...]}.
type FieldPermissionMiddleware struct {
	schemaName  string
	ms          settings.MiddlewareSettings
	permissions map[string][]string
}

// NewFieldPermission creates the field permission middleware, snapshotting the
// permission table at construction time.
func NewFieldPermission(schemaName string, ms settings.MiddlewareSettings, res *settings.Resolver) *FieldPermissionMiddleware {
	m := &FieldPermissionMiddleware{
		schemaName:  schemaName,
		ms:          ms,
		permissions: make(map[string][]string),
	}
	raw := res.GetSetting("security_settings.field_permissions", nil, schemaName)
	if table, ok := raw.(map[string]any); ok {
		for field, roles := range table {
			list, ok := roles.([]any)
			if !ok {
				continue
			}
			for _, role := range list {
				if s, ok := role.(string); ok {
					m.permissions[field] = append(m.permissions[field], s)
				}
			}
		}
	}
	return m
}

func (m *FieldPermissionMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnableFieldPermissions || len(m.permissions) == 0 {
		return next(root, info, args)
	}

	required, ok := m.permissions[info.FieldName]
	if !ok {
		return next(root, info, args)
	}

	user := auth.UserFromContext(info.Ctx)
	for _, role := range required {
		if user.HasRole(role) {
			return next(root, info, args)
		}
	}
	return nil, NewPermissionError("field_permission_denied",
		"permission denied for field "+info.FieldName)
}
