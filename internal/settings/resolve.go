package settings

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// OverrideSource supplies the registry-held settings map for a schema. The registry
// implements this; it is injected after construction to keep the dependency one-way.
type OverrideSource interface {
	SchemaOverrides(schemaName string) map[string]any
}

// Resolver merges the four settings sources for any section and schema name. It is
// safe for concurrent use; the proxy store is the only mutable state and is guarded
// by its own lock.
type Resolver struct {
	debug       bool
	environment string
	global      map[string]any
	logger      zerolog.Logger

	source OverrideSource

	mu    sync.RWMutex
	proxy map[string]map[string]any
}

// NewResolver builds a Resolver over the global settings block. The global map is the
// raw `settings:` tree from configuration: either schema-scoped
// (`settings.<schema>.<section>`) or, for single-schema legacy deployments, an
// unscoped block whose top level contains known section keys directly.
func NewResolver(debug bool, environment string, global map[string]any, logger zerolog.Logger) *Resolver {
	if environment == "" {
		if debug {
			environment = "development"
		} else {
			environment = "production"
		}
	}
	return &Resolver{
		debug:       debug,
		environment: environment,
		global:      global,
		logger:      logger.With().Str("component", "settings").Logger(),
		proxy:       make(map[string]map[string]any),
	}
}

// Debug reports the debug flag the resolver was constructed with.
func (r *Resolver) Debug() bool { return r.debug }

// Environment reports the resolved environment name.
func (r *Resolver) Environment() string { return r.environment }

// SetOverrideSource wires in the registry-backed override source.
func (r *Resolver) SetOverrideSource(src OverrideSource) {
	r.source = src
}

// ConfigureSchemaSettings pushes schema-scoped overrides into the proxy store so
// resolution sees them even before the registry lookup path is exercised. Repeated
// calls deep-merge over previous values.
func (r *Resolver) ConfigureSchemaSettings(schemaName string, overrides map[string]any) {
	if len(overrides) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxy[schemaName] = deepMerge(r.proxy[schemaName], normalizeLegacy(overrides))
}

// ClearSchemaSettings drops any proxy-store overrides for the schema.
func (r *Resolver) ClearSchemaSettings(schemaName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.proxy, schemaName)
}

// Resolve returns the merged raw map for one section of one schema. Precedence, low
// to high: library+environment defaults, global configuration, registry overrides,
// and (for schema_settings only) direct top-level keys of the registry overrides.
func (r *Resolver) Resolve(section Section, schemaName string) map[string]any {
	merged := deepMerge(libraryDefaults(section), environmentDefaults(r.environment, section))

	if global := r.globalBlock(schemaName); global != nil {
		merged = deepMerge(merged, sectionOf(global, section))
	}

	overrides := r.registryOverrides(schemaName)
	merged = deepMerge(merged, sectionOf(overrides, section))

	if section == SectionSchema {
		merged = deepMerge(merged, directSchemaKeys(overrides))
	}

	return merged
}

// GetSetting resolves a dotted path ("section.key") for a schema, returning def when
// the path is absent.
func (r *Resolver) GetSetting(path string, def any, schemaName string) any {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) != 2 {
		return def
	}
	section := Section(parts[0])
	resolved := r.Resolve(section, schemaName)
	if v, ok := resolved[parts[1]]; ok {
		return v
	}
	return def
}

// globalBlock picks the global settings block for the schema: the schema-scoped block
// when present, otherwise the whole tree when it looks like an unscoped legacy block.
func (r *Resolver) globalBlock(schemaName string) map[string]any {
	if r.global == nil {
		return nil
	}
	if scoped, ok := r.global[schemaName].(map[string]any); ok {
		return normalizeLegacy(scoped)
	}
	normalized := normalizeLegacy(r.global)
	if hasKnownSection(normalized) {
		return normalized
	}
	return nil
}

func (r *Resolver) registryOverrides(schemaName string) map[string]any {
	r.mu.RLock()
	proxied := r.proxy[schemaName]
	r.mu.RUnlock()

	merged := deepMerge(nil, proxied)
	if r.source != nil {
		merged = deepMerge(merged, normalizeLegacy(r.source.SchemaOverrides(schemaName)))
	}
	return merged
}

// directSchemaKeys extracts top-level scalar keys of a registry overrides map that
// name SchemaSettings fields. This is the backward-compat path for settings written
// without the schema_settings nesting.
func directSchemaKeys(overrides map[string]any) map[string]any {
	if len(overrides) == 0 {
		return nil
	}
	out := make(map[string]any)
	for _, key := range schemaSettingKeys {
		if v, ok := overrides[key]; ok {
			out[key] = v
		}
	}
	return out
}

var schemaSettingKeys = []string{
	"enable_graphiql",
	"enable_introspection",
	"authentication_required",
	"pretty_print",
	"enable_batch",
	"max_batch_size",
}

func sectionOf(block map[string]any, section Section) map[string]any {
	if block == nil {
		return nil
	}
	if v, ok := block[string(section)].(map[string]any); ok {
		return v
	}
	return nil
}

func hasKnownSection(block map[string]any) bool {
	for _, s := range knownSections {
		if _, ok := block[string(s)]; ok {
			return true
		}
	}
	return false
}

// normalizeLegacy rewrites legacy section aliases to canonical names without ever
// overwriting an explicit canonical key. The input map is not mutated.
func normalizeLegacy(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if canonical, ok := legacyAliases[k]; ok {
			if _, exists := m[string(canonical)]; !exists {
				out[string(canonical)] = v
			}
			continue
		}
		out[k] = v
	}
	return out
}

// deepMerge merges src over dst recursively: nested map keys merge, everything else
// overwrites. Neither input is mutated; the result is always a fresh map.
func deepMerge(dst, src map[string]any) map[string]any {
	if len(dst) == 0 && len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = deepMerge(dstMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}

// libraryDefaults returns the built-in defaults for a section as a raw map. Typed
// records carry the same defaults; the raw form exists so lower layers participate
// in merging uniformly.
func libraryDefaults(section Section) map[string]any {
	switch section {
	case SectionSchema:
		return map[string]any{
			"enable_graphiql":      true,
			"enable_introspection": true,
			"max_batch_size":       10,
		}
	default:
		return nil
	}
}

// environmentDefaults layers per-environment tweaks over the library defaults.
func environmentDefaults(environment string, section Section) map[string]any {
	if section != SectionSchema {
		return nil
	}
	switch environment {
	case "development":
		return map[string]any{"pretty_print": true}
	case "production":
		return map[string]any{"pretty_print": false}
	default:
		return nil
	}
}
