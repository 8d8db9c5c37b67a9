// Package middleware implements the per-field resolver interceptor chain: a fixed,
// ordered list of concerns composed into one resolver per request. Middleware here
// wraps GraphQL field resolution, not HTTP handling.
package middleware

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/ast"

	"github.com/graphmux/graphmux/internal/audit"
	"github.com/graphmux/graphmux/internal/settings"
)

// Resolver resolves one field.
type Resolver func(root any, info *ResolveInfo, args map[string]any) (any, error)

// Middleware wraps a field resolver. Implementations snapshot their settings at
// construction time; enable flags are frozen for the instance lifetime.
type Middleware interface {
	Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error)
}

// Path is the field path from the operation root, innermost last. A root field has
// a nil Prev.
type Path struct {
	Prev *Path
	Key  string
}

// ResolveInfo carries everything a middleware may inspect about the current field
// resolution. One instance exists per resolved field; the args map is shared and
// may be mutated down the chain.
type ResolveInfo struct {
	Ctx           context.Context
	SchemaName    string
	FieldName     string
	OperationType string
	OperationName string
	Path          *Path
	Variables     map[string]any
	// ClientKey identifies the caller for rate limiting: user id when
	// authenticated, remote address otherwise.
	ClientKey string

	Document     *ast.Document
	OperationRef int

	// Plugins is the per-request plugin context, shared by every field of one
	// operation.
	Plugins *PluginContext
}

// IsRootField reports whether this field sits directly under the operation root.
func (info *ResolveInfo) IsRootField() bool {
	return info.Path == nil || info.Path.Prev == nil
}

// IsIntrospectionField reports whether this is a __schema/__type style meta field.
func (info *ResolveInfo) IsIntrospectionField() bool {
	return strings.HasPrefix(info.FieldName, "__")
}

// VariableKeys returns the variable names (never values) of the operation.
func (info *ResolveInfo) VariableKeys() []string {
	if len(info.Variables) == 0 {
		return nil
	}
	keys := make([]string, 0, len(info.Variables))
	for k := range info.Variables {
		keys = append(keys, k)
	}
	return keys
}

// StackDeps are the collaborators the standard stack needs. All of them are shared
// and thread-safe.
type StackDeps struct {
	Settings  *settings.Resolver
	Logger    zerolog.Logger
	Audit     audit.Logger
	Factories *Factories
	Plugins   *PluginRegistry
}

// tenantFactory builds the optional tenant-context middleware. Deployments with
// multitenancy register one; everyone else skips the slot.
var (
	tenantMu      sync.RWMutex
	tenantFactory func(schemaName string, ms settings.MiddlewareSettings) Middleware
)

// RegisterTenantMiddleware installs the optional tenant-context middleware factory.
func RegisterTenantMiddleware(factory func(schemaName string, ms settings.MiddlewareSettings) Middleware) {
	tenantMu.Lock()
	defer tenantMu.Unlock()
	tenantFactory = factory
}

// Stack instantiates the standard middleware stack for a schema, in canonical
// order. Instances are fresh per call so settings changes take effect on the next
// request.
func Stack(schemaName string, deps StackDeps) []Middleware {
	ms := settings.MiddlewareSettingsFromSchema(deps.Settings, schemaName)
	ss := settings.SchemaSettingsFromSchema(deps.Settings, schemaName)

	stack := []Middleware{
		NewAuthentication(schemaName, ms, deps.Logger),
	}

	tenantMu.RLock()
	factory := tenantFactory
	tenantMu.RUnlock()
	if factory != nil {
		if mw := factory(schemaName, ms); mw != nil {
			stack = append(stack, mw)
		}
	}

	stack = append(stack,
		NewAudit(schemaName, ms, deps.Audit, deps.Logger),
		NewRateLimiting(schemaName, ms, deps.Factories, deps.Logger),
		NewAccessGuard(schemaName, ms, ss, deps.Logger),
		NewValidation(schemaName, ms, deps.Factories),
		NewFieldPermission(schemaName, ms, deps.Settings),
		NewQueryComplexity(schemaName, ms, deps.Factories),
		NewPlugin(schemaName, ms, deps.Plugins, deps.Logger),
		NewPerformance(schemaName, ms, deps.Logger),
		NewLogging(schemaName, ms, deps.Logger),
		NewErrorHandling(schemaName, ms, deps.Logger),
		NewCORS(schemaName, ms),
	)
	return stack
}

// ChainResolver folds the stack around a base resolver. The first middleware sees
// the call first on the way in and last on the way out.
func ChainResolver(stack []Middleware, base Resolver) Resolver {
	resolver := base
	for i := len(stack) - 1; i >= 0; i-- {
		mw := stack[i]
		next := resolver
		resolver = func(root any, info *ResolveInfo, args map[string]any) (any, error) {
			return mw.Resolve(next, root, info, args)
		}
	}
	return resolver
}
