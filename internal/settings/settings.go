// Package settings implements the layered settings resolution engine used by every
// named schema: library defaults, environment defaults, global configuration,
// registry overrides, and direct schema-level keys merged in a fixed precedence
// order and decoded into immutable typed records.
package settings

import (
	"github.com/go-viper/mapstructure/v2"
)

// Section identifies one typed settings block.
type Section string

const (
	SectionSchema       Section = "schema_settings"
	SectionTypeGen      Section = "type_generation_settings"
	SectionQueryGen     Section = "query_generation_settings"
	SectionMutationGen  Section = "mutation_generation_settings"
	SectionFiltering    Section = "filtering_settings"
	SectionSubscription Section = "subscription_generation_settings"
	SectionMiddleware   Section = "middleware_settings"
	SectionPerformance  Section = "performance_settings"
	SectionSecurity     Section = "security_settings"
)

// knownSections are the top-level keys that mark an unscoped legacy settings block.
var knownSections = []Section{
	SectionSchema,
	SectionTypeGen,
	SectionQueryGen,
	SectionMutationGen,
	SectionFiltering,
	SectionSubscription,
	SectionMiddleware,
	SectionPerformance,
	SectionSecurity,
}

// legacyAliases maps legacy section spellings to their canonical names. An alias is
// applied only when the canonical key is not already present.
var legacyAliases = map[string]Section{
	"TYPE_SETTINGS": SectionTypeGen,
	"FILTERING":     SectionFiltering,
	"PERFORMANCE":   SectionPerformance,
	"SECURITY":      SectionSecurity,
}

// SchemaSettings controls the outward behavior of one named schema.
type SchemaSettings struct {
	EnableGraphiQL         bool `mapstructure:"enable_graphiql"`
	EnableIntrospection    bool `mapstructure:"enable_introspection"`
	AuthenticationRequired bool `mapstructure:"authentication_required"`
	PrettyPrint            bool `mapstructure:"pretty_print"`
	EnableBatch            bool `mapstructure:"enable_batch"`
	MaxBatchSize           int  `mapstructure:"max_batch_size"`
}

// DefaultSchemaSettings returns the library defaults for SchemaSettings.
func DefaultSchemaSettings() SchemaSettings {
	return SchemaSettings{
		EnableGraphiQL:      true,
		EnableIntrospection: true,
		MaxBatchSize:        10,
	}
}

// TypeGeneratorSettings controls how model types are rendered into GraphQL types.
type TypeGeneratorSettings struct {
	GenerateDescriptions bool     `mapstructure:"generate_descriptions"`
	IncludeRelations     bool     `mapstructure:"include_relations"`
	ExcludeFields        []string `mapstructure:"exclude_fields"`
}

func DefaultTypeGeneratorSettings() TypeGeneratorSettings {
	return TypeGeneratorSettings{
		GenerateDescriptions: true,
		IncludeRelations:     true,
	}
}

// QueryGeneratorSettings controls which query fields are generated per model.
type QueryGeneratorSettings struct {
	EnableGetQueries  bool `mapstructure:"enable_get_queries"`
	EnableListQueries bool `mapstructure:"enable_list_queries"`
	EnablePagination  bool `mapstructure:"enable_pagination"`
	EnableOrdering    bool `mapstructure:"enable_ordering"`
	DefaultPageSize   int  `mapstructure:"default_page_size"`
	MaxPageSize       int  `mapstructure:"max_page_size"`
}

func DefaultQueryGeneratorSettings() QueryGeneratorSettings {
	return QueryGeneratorSettings{
		EnableGetQueries:  true,
		EnableListQueries: true,
		EnablePagination:  true,
		EnableOrdering:    true,
		DefaultPageSize:   25,
		MaxPageSize:       100,
	}
}

// MutationGeneratorSettings controls which mutation fields are generated per model.
type MutationGeneratorSettings struct {
	EnableCreate bool `mapstructure:"enable_create"`
	EnableUpdate bool `mapstructure:"enable_update"`
	EnableDelete bool `mapstructure:"enable_delete"`
	EnableBulk   bool `mapstructure:"enable_bulk"`
}

func DefaultMutationGeneratorSettings() MutationGeneratorSettings {
	return MutationGeneratorSettings{
		EnableCreate: true,
		EnableUpdate: true,
		EnableDelete: true,
	}
}

// FilteringSettings controls generated filter arguments.
type FilteringSettings struct {
	EnableFiltering  bool     `mapstructure:"enable_filtering"`
	MaxFilterDepth   int      `mapstructure:"max_filter_depth"`
	AllowedOperators []string `mapstructure:"allowed_operators"`
	CaseInsensitive  bool     `mapstructure:"case_insensitive"`
}

func DefaultFilteringSettings() FilteringSettings {
	return FilteringSettings{
		EnableFiltering:  true,
		MaxFilterDepth:   3,
		AllowedOperators: []string{"eq", "ne", "in", "contains", "gt", "gte", "lt", "lte"},
		CaseInsensitive:  true,
	}
}

// SubscriptionGeneratorSettings controls generated subscription fields.
type SubscriptionGeneratorSettings struct {
	EnableSubscriptions bool `mapstructure:"enable_subscriptions"`
	OnCreate            bool `mapstructure:"on_create"`
	OnUpdate            bool `mapstructure:"on_update"`
	OnDelete            bool `mapstructure:"on_delete"`
}

func DefaultSubscriptionGeneratorSettings() SubscriptionGeneratorSettings {
	return SubscriptionGeneratorSettings{
		OnCreate: true,
		OnUpdate: true,
		OnDelete: true,
	}
}

// MiddlewareSettings controls the resolver middleware stack. Instances snapshot this
// record at construction time; flags are frozen for the instance lifetime.
type MiddlewareSettings struct {
	EnableAuthentication   bool `mapstructure:"enable_authentication"`
	EnableAudit            bool `mapstructure:"enable_audit"`
	EnableRateLimiting     bool `mapstructure:"enable_rate_limiting"`
	EnableAccessGuard      bool `mapstructure:"enable_access_guard"`
	EnableValidation       bool `mapstructure:"enable_validation"`
	EnableFieldPermissions bool `mapstructure:"enable_field_permissions"`
	EnableQueryComplexity  bool `mapstructure:"enable_query_complexity"`
	EnablePlugins          bool `mapstructure:"enable_plugins"`
	EnablePerformance      bool `mapstructure:"enable_performance"`
	EnableLogging          bool `mapstructure:"enable_logging"`
	EnableErrorHandling    bool `mapstructure:"enable_error_handling"`
	EnableCORS             bool `mapstructure:"enable_cors"`

	MaxQueryDepth        int  `mapstructure:"max_query_depth"`
	MaxQueryComplexity   int  `mapstructure:"max_query_complexity"`
	SlowFieldThresholdMS int  `mapstructure:"slow_field_threshold_ms"`
	RateLimitPerMinute   int  `mapstructure:"rate_limit_per_minute"`
	LoginRateLimit       int  `mapstructure:"login_rate_limit_per_minute"`
	LogIntrospection     bool `mapstructure:"log_introspection"`
}

func DefaultMiddlewareSettings() MiddlewareSettings {
	return MiddlewareSettings{
		EnableAuthentication:  true,
		EnableAudit:           true,
		EnableRateLimiting:    true,
		EnableAccessGuard:     true,
		EnableValidation:      true,
		EnableQueryComplexity: true,
		EnablePerformance:     true,
		EnableLogging:         true,
		EnableErrorHandling:   true,
		MaxQueryDepth:         10,
		MaxQueryComplexity:    1000,
		SlowFieldThresholdMS:  500,
		RateLimitPerMinute:    120,
		LoginRateLimit:        10,
	}
}

// decode fills target from a merged raw map. Unknown keys are dropped silently and
// decode failures leave the defaults in place; resolution never raises.
func decode(raw map[string]any, target any) {
	if len(raw) == 0 {
		return
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return
	}
	_ = dec.Decode(raw)
}

// SchemaSettingsFromSchema resolves SchemaSettings for the named schema.
func SchemaSettingsFromSchema(r *Resolver, schemaName string) SchemaSettings {
	s := DefaultSchemaSettings()
	decode(r.Resolve(SectionSchema, schemaName), &s)
	return s
}

// TypeGeneratorSettingsFromSchema resolves TypeGeneratorSettings for the named schema.
func TypeGeneratorSettingsFromSchema(r *Resolver, schemaName string) TypeGeneratorSettings {
	s := DefaultTypeGeneratorSettings()
	decode(r.Resolve(SectionTypeGen, schemaName), &s)
	return s
}

// QueryGeneratorSettingsFromSchema resolves QueryGeneratorSettings for the named schema.
func QueryGeneratorSettingsFromSchema(r *Resolver, schemaName string) QueryGeneratorSettings {
	s := DefaultQueryGeneratorSettings()
	decode(r.Resolve(SectionQueryGen, schemaName), &s)
	return s
}

// MutationGeneratorSettingsFromSchema resolves MutationGeneratorSettings for the named schema.
func MutationGeneratorSettingsFromSchema(r *Resolver, schemaName string) MutationGeneratorSettings {
	s := DefaultMutationGeneratorSettings()
	decode(r.Resolve(SectionMutationGen, schemaName), &s)
	return s
}

// FilteringSettingsFromSchema resolves FilteringSettings for the named schema.
func FilteringSettingsFromSchema(r *Resolver, schemaName string) FilteringSettings {
	s := DefaultFilteringSettings()
	decode(r.Resolve(SectionFiltering, schemaName), &s)
	return s
}

// SubscriptionGeneratorSettingsFromSchema resolves SubscriptionGeneratorSettings for
// the named schema.
func SubscriptionGeneratorSettingsFromSchema(r *Resolver, schemaName string) SubscriptionGeneratorSettings {
	s := DefaultSubscriptionGeneratorSettings()
	decode(r.Resolve(SectionSubscription, schemaName), &s)
	return s
}

// MiddlewareSettingsFromSchema resolves MiddlewareSettings for the named schema.
// Legacy performance and security sections fold in underneath the canonical
// middleware section.
func MiddlewareSettingsFromSchema(r *Resolver, schemaName string) MiddlewareSettings {
	s := DefaultMiddlewareSettings()
	merged := deepMerge(r.Resolve(SectionPerformance, schemaName), r.Resolve(SectionSecurity, schemaName))
	merged = deepMerge(merged, r.Resolve(SectionMiddleware, schemaName))
	decode(merged, &s)
	return s
}
