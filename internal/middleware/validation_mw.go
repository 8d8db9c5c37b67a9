package middleware

import "github.com/graphmux/graphmux/internal/settings"

// ValidationMiddleware checks field arguments against input limits before
// resolution. It runs at every field that carries arguments.
type ValidationMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	factories  *Factories
}

// NewValidation creates the input validation middleware.
func NewValidation(schemaName string, ms settings.MiddlewareSettings, factories *Factories) *ValidationMiddleware {
	return &ValidationMiddleware{schemaName: schemaName, ms: ms, factories: factories}
}

func (m *ValidationMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnableValidation || m.factories == nil || len(args) == 0 {
		return next(root, info, args)
	}

	if err := m.factories.InputValidator(m.schemaName).Validate(args); err != nil {
		return nil, NewValidationError("invalid_input", err.Error())
	}
	return next(root, info, args)
}
