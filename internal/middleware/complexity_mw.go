package middleware

import "github.com/graphmux/graphmux/internal/settings"

// QueryComplexityMiddleware scores the operation document at the first root field
// of a query and refuses execution when a limit is exceeded. Mutations and
// subscriptions are not scored; their cost is bounded by their root field count.
type QueryComplexityMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	factories  *Factories
}

// NewQueryComplexity creates the query complexity middleware.
func NewQueryComplexity(schemaName string, ms settings.MiddlewareSettings, factories *Factories) *QueryComplexityMiddleware {
	return &QueryComplexityMiddleware{schemaName: schemaName, ms: ms, factories: factories}
}

func (m *QueryComplexityMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnableQueryComplexity || m.factories == nil ||
		!info.IsRootField() || info.OperationType != "query" || info.Document == nil {
		return next(root, info, args)
	}

	result := m.factories.ComplexityAnalyzer(m.schemaName).Analyze(info.Document, info.OperationRef)
	if result.Exceeded() {
		// Every violation is reported at once so the client can fix the query
		// in one pass.
		return nil, NewValidationError("query_too_complex",
			"query exceeds complexity limits", result.Violations...)
	}
	return next(root, info, args)
}
