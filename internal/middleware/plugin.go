package middleware

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/settings"
)

// Plugin is one extension point in the resolve pipeline. All hooks are optional.
// Before hooks may short-circuit resolution with a precomputed result; after hooks
// may rewrite the result. Hook panics and misbehavior must never fail the request,
// so the plugin middleware guards every invocation.
type Plugin struct {
	Name string

	// BeforeOperation runs once per root operation field. Returning handled=true
	// short-circuits with the returned result.
	BeforeOperation func(info *ResolveInfo, args map[string]any) (result any, handled bool)

	// BeforeResolve runs for every field. Returning handled=true short-circuits.
	BeforeResolve func(info *ResolveInfo, args map[string]any) (result any, handled bool)

	// AfterResolve runs for every field, including failed ones (err non-nil). The
	// returned value replaces the result on success.
	AfterResolve func(info *ResolveInfo, result any, err error) any

	// AfterOperation runs once per root operation field, including failed ones.
	AfterOperation func(info *ResolveInfo, result any, err error) any
}

// PluginRegistry holds the registered plugins in registration order.
type PluginRegistry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{}
}

// Register appends a plugin.
func (r *PluginRegistry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
}

// Plugins returns a snapshot of the registered plugins.
func (r *PluginRegistry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// PluginContext is the per-request scratch space shared by plugin hooks, keyed by
// hook type or plugin name by convention.
type PluginContext struct {
	mu     sync.Mutex
	values map[string]any
}

// NewPluginContext creates an empty per-request context.
func NewPluginContext() *PluginContext {
	return &PluginContext{values: make(map[string]any)}
}

// Set stores a value.
func (c *PluginContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get retrieves a value.
func (c *PluginContext) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// PluginMiddleware runs the registered plugin hooks around field resolution.
type PluginMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	registry   *PluginRegistry
	logger     zerolog.Logger
}

// NewPlugin creates the plugin middleware.
func NewPlugin(schemaName string, ms settings.MiddlewareSettings, registry *PluginRegistry, logger zerolog.Logger) *PluginMiddleware {
	return &PluginMiddleware{
		schemaName: schemaName,
		ms:         ms,
		registry:   registry,
		logger:     logger.With().Str("component", "plugin-middleware").Str("schema", schemaName).Logger(),
	}
}

func (m *PluginMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnablePlugins || m.registry == nil {
		return next(root, info, args)
	}

	plugins := m.registry.Plugins()
	if len(plugins) == 0 {
		return next(root, info, args)
	}

	isRoot := info.IsRootField()

	// Before hooks may short-circuit with a precomputed result.
	for _, p := range plugins {
		if isRoot && p.BeforeOperation != nil {
			if result, handled := m.safeBefore(p.Name, p.BeforeOperation, info, args); handled {
				return result, nil
			}
		}
		if p.BeforeResolve != nil {
			if result, handled := m.safeBefore(p.Name, p.BeforeResolve, info, args); handled {
				return result, nil
			}
		}
	}

	result, err := next(root, info, args)

	// After hooks always run, with the error attached when resolution failed,
	// before the error is re-raised.
	for _, p := range plugins {
		if p.AfterResolve != nil {
			if rewritten, ok := m.safeAfter(p.Name, p.AfterResolve, info, result, err); ok && err == nil {
				result = rewritten
			}
		}
		if isRoot && p.AfterOperation != nil {
			if rewritten, ok := m.safeAfter(p.Name, p.AfterOperation, info, result, err); ok && err == nil {
				result = rewritten
			}
		}
	}

	return result, err
}

func (m *PluginMiddleware) safeBefore(name string, hook func(*ResolveInfo, map[string]any) (any, bool), info *ResolveInfo, args map[string]any) (result any, handled bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Str("plugin", name).Any("panic", r).Msg("plugin before-hook panicked")
			result, handled = nil, false
		}
	}()
	return hook(info, args)
}

func (m *PluginMiddleware) safeAfter(name string, hook func(*ResolveInfo, any, error) any, info *ResolveInfo, result any, err error) (rewritten any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Str("plugin", name).Any("panic", r).Msg("plugin after-hook panicked")
			rewritten, ok = nil, false
		}
	}()
	return hook(info, result, err), true
}
