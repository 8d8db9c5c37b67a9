package middleware

import "github.com/graphmux/graphmux/internal/settings"

// CORSMiddleware is a pass-through slot. Cross-origin headers are negotiated at
// the HTTP layer before field resolution starts, but the slot stays in the stack
// so per-schema plugins can hook the tail of the chain consistently.
type CORSMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
}

// NewCORS creates the CORS slot middleware.
func NewCORS(schemaName string, ms settings.MiddlewareSettings) *CORSMiddleware {
	return &CORSMiddleware{schemaName: schemaName, ms: ms}
}

func (m *CORSMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	return next(root, info, args)
}
