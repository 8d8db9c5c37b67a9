package settings

import "strings"

// graphiql defaults are computed at registration time, not resolution time: a schema
// literally named "graphiql" gets debug-gated values for the three sensitive flags
// unless the registrant set them explicitly in any accepted spelling.

const GraphiQLSchemaName = "graphiql"

var graphiqlGatedKeys = []string{
	"enable_graphiql",
	"enable_introspection",
	"authentication_required",
}

// ApplyGraphiQLDefaults returns a copy of the settings map with debug-gated defaults
// injected for enable_graphiql, enable_introspection, and authentication_required.
// A key counts as explicitly set when present nested under schema_settings, as a
// direct top-level key, or in the legacy upper-snake spelling (case-insensitively).
func ApplyGraphiQLDefaults(settingsMap map[string]any, debug bool) map[string]any {
	out := deepMerge(nil, settingsMap)
	if out == nil {
		out = make(map[string]any)
	}

	nested, _ := out[string(SectionSchema)].(map[string]any)
	nestedOut := deepMerge(nil, nested)
	if nestedOut == nil {
		nestedOut = make(map[string]any)
	}

	defaults := map[string]bool{
		"enable_graphiql":         debug,
		"enable_introspection":    debug,
		"authentication_required": !debug,
	}

	for _, key := range graphiqlGatedKeys {
		if keyExplicitlySet(out, nested, key) {
			continue
		}
		nestedOut[key] = defaults[key]
	}

	out[string(SectionSchema)] = nestedOut
	return out
}

func keyExplicitlySet(top, nested map[string]any, key string) bool {
	if _, ok := nested[key]; ok {
		return true
	}
	if _, ok := top[key]; ok {
		return true
	}
	upper := strings.ToUpper(key)
	for k := range top {
		if strings.ToUpper(k) == upper && k != key {
			return true
		}
	}
	for k := range nested {
		if strings.ToUpper(k) == upper && k != key {
			return true
		}
	}
	return false
}
