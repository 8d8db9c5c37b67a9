// Package registry holds the process-wide schema registry: one SchemaInfo per
// named schema, a lazily populated builder cache, and a version-checked compiled
// instance cache. All writes happen under one lock; the instance cache read path
// tolerates racing rebuilds because the version comparison makes a duplicate
// compile harmless.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/catalog"
	"github.com/graphmux/graphmux/internal/schemagen"
	"github.com/graphmux/graphmux/internal/settings"
)

// SchemaInfo is one registry entry.
type SchemaInfo struct {
	Name          string
	Description   string
	Version       string
	Apps          []string
	Models        []string
	ExcludeModels []string
	Settings      map[string]any
	AutoDiscover  bool
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RegisterOptions carries everything Register accepts beyond the name.
type RegisterOptions struct {
	Description   string
	Version       string
	Apps          []string
	Models        []string
	ExcludeModels []string
	Settings      map[string]any
	AutoDiscover  bool
	Enabled       *bool
}

// Hook runs around registration. Pre-registration hooks may return partial
// options to merge in; hook errors are logged and swallowed so a misbehaving
// hook never blocks registration.
type (
	PreRegisterHook  func(name string, opts *RegisterOptions) error
	PostRegisterHook func(info *SchemaInfo) error
)

// ValidationResult is the outcome of ValidateSchema.
type ValidationResult struct {
	Valid      bool
	Errors     []string
	Warnings   []string
	ModelCount int
}

type instanceEntry struct {
	version int64
	schema  *schemagen.CompiledSchema
}

// Registry owns schema metadata and the two derived caches. Safe for concurrent
// use.
type Registry struct {
	catalog  *catalog.Catalog
	settings *settings.Resolver
	logger   zerolog.Logger

	mu             sync.RWMutex
	schemas        map[string]*SchemaInfo
	builders       map[string]*schemagen.Builder
	instances      map[string]*instanceEntry
	preHooks       []PreRegisterHook
	postHooks      []PostRegisterHook
	discoveryHooks []DiscoveryHook
	discovered     bool
}

// New creates a registry over the given model catalog and settings resolver. The
// registry installs itself as the resolver's override source.
func New(cat *catalog.Catalog, res *settings.Resolver, logger zerolog.Logger) *Registry {
	r := &Registry{
		catalog:   cat,
		settings:  res,
		logger:    logger.With().Str("component", "registry").Logger(),
		schemas:   make(map[string]*SchemaInfo),
		builders:  make(map[string]*schemagen.Builder),
		instances: make(map[string]*instanceEntry),
	}
	res.SetOverrideSource(r)
	return r
}

// SchemaOverrides implements settings.OverrideSource.
func (r *Registry) SchemaOverrides(schemaName string) map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.schemas[schemaName]; ok {
		return info.Settings
	}
	return nil
}

// AddPreRegisterHook installs a pre-registration hook.
func (r *Registry) AddPreRegisterHook(hook PreRegisterHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preHooks = append(r.preHooks, hook)
}

// AddPostRegisterHook installs a post-registration hook.
func (r *Registry) AddPostRegisterHook(hook PostRegisterHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postHooks = append(r.postHooks, hook)
}

// Register upserts a schema. Re-registering under the same name updates in place;
// the builder and instance caches for the name are evicted so the next request
// rebuilds against the new definition.
func (r *Registry) Register(name string, opts RegisterOptions) (*SchemaInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name must not be empty")
	}

	r.mu.RLock()
	preHooks := append([]PreRegisterHook(nil), r.preHooks...)
	postHooks := append([]PostRegisterHook(nil), r.postHooks...)
	r.mu.RUnlock()

	for _, hook := range preHooks {
		if err := hook(name, &opts); err != nil {
			r.logger.Warn().Err(err).Str("schema", name).Msg("pre-registration hook failed")
		}
	}

	if name == settings.GraphiQLSchemaName {
		opts.Settings = settings.ApplyGraphiQLDefaults(opts.Settings, r.settings.Debug())
	}

	enabled := true
	if opts.Enabled != nil {
		enabled = *opts.Enabled
	}

	r.mu.Lock()
	now := time.Now()
	info, exists := r.schemas[name]
	if exists {
		r.logger.Info().Str("schema", name).Msg("updating registered schema")
		info.Description = opts.Description
		info.Version = opts.Version
		info.Apps = opts.Apps
		info.Models = opts.Models
		info.ExcludeModels = opts.ExcludeModels
		info.Settings = opts.Settings
		info.AutoDiscover = opts.AutoDiscover
		info.Enabled = enabled
		info.UpdatedAt = now
		delete(r.builders, name)
		delete(r.instances, name)
	} else {
		r.logger.Info().Str("schema", name).Msg("registering schema")
		info = &SchemaInfo{
			Name:          name,
			Description:   opts.Description,
			Version:       opts.Version,
			Apps:          opts.Apps,
			Models:        opts.Models,
			ExcludeModels: opts.ExcludeModels,
			Settings:      opts.Settings,
			AutoDiscover:  opts.AutoDiscover,
			Enabled:       enabled,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		r.schemas[name] = info
	}
	r.mu.Unlock()

	// An update replaces the previous registration's overrides wholesale; keys
	// absent from the new settings must not linger in resolution.
	if exists {
		r.settings.ClearSchemaSettings(name)
	}
	if len(opts.Settings) > 0 {
		r.settings.ConfigureSchemaSettings(name, opts.Settings)
	}

	for _, hook := range postHooks {
		if err := hook(info); err != nil {
			r.logger.Warn().Err(err).Str("schema", name).Msg("post-registration hook failed")
		}
	}
	return info, nil
}

// Unregister removes a schema together with its builder and cached instance.
// Returns whether anything was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	_, existed := r.schemas[name]
	delete(r.schemas, name)
	delete(r.builders, name)
	delete(r.instances, name)
	r.mu.Unlock()

	if existed {
		r.settings.ClearSchemaSettings(name)
		r.logger.Info().Str("schema", name).Msg("unregistered schema")
	}
	return existed
}

// Get returns the SchemaInfo for a name, or nil.
func (r *Registry) Get(name string) *SchemaInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[name]
}

// Exists reports whether a schema is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[name]
	return ok
}

// List returns registered schemas, sorted by name.
func (r *Registry) List(enabledOnly bool) []*SchemaInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SchemaInfo, 0, len(r.schemas))
	for _, info := range r.schemas {
		if enabledOnly && !info.Enabled {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns registered schema names, sorted.
func (r *Registry) Names(enabledOnly bool) []string {
	infos := r.List(enabledOnly)
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

// Enable flips the enabled flag on. Returns whether the schema existed.
func (r *Registry) Enable(name string) bool { return r.setEnabled(name, true) }

// Disable flips the enabled flag off. Returns whether the schema existed.
func (r *Registry) Disable(name string) bool { return r.setEnabled(name, false) }

func (r *Registry) setEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.schemas[name]
	if !ok {
		return false
	}
	info.Enabled = enabled
	info.UpdatedAt = time.Now()
	return true
}

// Clear empties every registry map and resets the discovery flag so the next
// Discover call re-scans. Used by tests and explicit admin flows.
func (r *Registry) Clear() {
	r.mu.Lock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	r.schemas = make(map[string]*SchemaInfo)
	r.builders = make(map[string]*schemagen.Builder)
	r.instances = make(map[string]*instanceEntry)
	r.discovered = false
	r.mu.Unlock()

	for _, name := range names {
		r.settings.ClearSchemaSettings(name)
	}
}

// ModelsForSchema resolves the model scope for a schema: the union of models from
// each configured app, intersected with the explicit models allowlist and minus
// exclude_models. Model name matching is case-insensitive and accepts both bare
// and app-qualified spellings. Unknown app labels are logged and skipped.
func (r *Registry) ModelsForSchema(name string) []schemagen.ScopedModel {
	info := r.Get(name)
	if info == nil {
		return nil
	}

	var scoped []schemagen.ScopedModel
	for _, appName := range info.Apps {
		if !r.catalog.HasApp(appName) {
			r.logger.Warn().Str("schema", name).Str("app", appName).Msg("unknown app in schema scope")
			continue
		}
		for _, model := range r.catalog.Models(appName) {
			scoped = append(scoped, schemagen.ScopedModel{App: appName, Model: model})
		}
	}

	if len(info.Models) > 0 {
		scoped = filterModels(scoped, info.Models, true)
	}
	if len(info.ExcludeModels) > 0 {
		scoped = filterModels(scoped, info.ExcludeModels, false)
	}
	return scoped
}

// filterModels keeps (or drops) the scoped models named in the selector list.
func filterModels(scoped []schemagen.ScopedModel, selectors []string, keep bool) []schemagen.ScopedModel {
	wanted := make(map[string]bool, len(selectors))
	for _, s := range selectors {
		wanted[strings.ToLower(s)] = true
	}
	out := scoped[:0:0]
	for _, sm := range scoped {
		bare := strings.ToLower(sm.Model.Name)
		qualified := strings.ToLower(sm.App + "." + sm.Model.Name)
		matched := wanted[bare] || wanted[qualified]
		if matched == keep {
			out = append(out, sm)
		}
	}
	return out
}

// ValidateSchema checks a schema's declared scope. Unresolvable app labels are
// errors; an empty resolved model scope despite configured apps is a warning.
func (r *Registry) ValidateSchema(name string) ValidationResult {
	info := r.Get(name)
	if info == nil {
		return ValidationResult{Errors: []string{fmt.Sprintf("schema %q is not registered", name)}}
	}

	result := ValidationResult{Valid: true}
	for _, appName := range info.Apps {
		if !r.catalog.HasApp(appName) {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("app %q not found", appName))
		}
	}

	models := r.ModelsForSchema(name)
	result.ModelCount = len(models)
	if len(info.Apps) > 0 && len(models) == 0 {
		result.Warnings = append(result.Warnings,
			"schema resolves to zero models despite configured apps")
	}
	return result
}

// SchemaBuilder returns the builder for a schema, constructing and caching it on
// first use. Unknown or disabled schemas are errors.
func (r *Registry) SchemaBuilder(name string) (*schemagen.Builder, error) {
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()
	if ok {
		return builder, nil
	}

	info := r.Get(name)
	if info == nil {
		return nil, fmt.Errorf("schema %q is not registered", name)
	}
	if !info.Enabled {
		return nil, fmt.Errorf("schema %q is disabled", name)
	}

	cfg := schemagen.GeneratorSettings{
		Type:         settings.TypeGeneratorSettingsFromSchema(r.settings, name),
		Query:        settings.QueryGeneratorSettingsFromSchema(r.settings, name),
		Mutation:     settings.MutationGeneratorSettingsFromSchema(r.settings, name),
		Filtering:    settings.FilteringSettingsFromSchema(r.settings, name),
		Subscription: settings.SubscriptionGeneratorSettingsFromSchema(r.settings, name),
	}
	builder = schemagen.NewBuilder(name, r.ModelsForSchema(name), cfg, r.logger)

	r.mu.Lock()
	// Another request may have built one while we were outside the lock; keep
	// the first.
	if cached, ok := r.builders[name]; ok {
		builder = cached
	} else {
		r.builders[name] = builder
	}
	r.mu.Unlock()
	return builder, nil
}

// SchemaInstance returns the compiled schema for a name, recompiling only when
// the builder's version token moved. This is the hot path for every request.
func (r *Registry) SchemaInstance(name string) (*schemagen.CompiledSchema, error) {
	builder, err := r.SchemaBuilder(name)
	if err != nil {
		return nil, err
	}

	version := builder.SchemaVersion()
	r.mu.RLock()
	entry := r.instances[name]
	r.mu.RUnlock()
	if entry != nil && entry.version == version {
		return entry.schema, nil
	}

	schema, err := builder.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %q: %w", name, err)
	}

	r.mu.Lock()
	r.instances[name] = &instanceEntry{version: schema.Version, schema: schema}
	r.mu.Unlock()
	return schema, nil
}
