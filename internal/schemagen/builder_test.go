package schemagen

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmux/graphmux/internal/catalog"
	"github.com/graphmux/graphmux/internal/middleware"
	"github.com/graphmux/graphmux/internal/settings"
)

// Test Plan:
// 1. Test SDL generation reflects the generator flags per model
// 2. Test the generated SDL parses and the compiled schema is cached by version
// 3. Test RebuildSchema bumps the version and replaces the cached instance
// 4. Test the resolver handles the full generated CRUD surface
// 5. Test list arguments: limit clamping, ordering, and filters
// 6. Test introspection data covers generated types and is found by name

func defaultGeneratorSettings() GeneratorSettings {
	return GeneratorSettings{
		Type:      settings.DefaultTypeGeneratorSettings(),
		Query:     settings.DefaultQueryGeneratorSettings(),
		Mutation:  settings.DefaultMutationGeneratorSettings(),
		Filtering: settings.DefaultFilteringSettings(),
	}
}

func reportModels() []ScopedModel {
	return []ScopedModel{{
		App: "reports",
		Model: catalog.Model{Name: "Report", Fields: []catalog.Field{
			{Name: "id", Type: "ID", Required: true},
			{Name: "title", Type: "String", Required: true},
			{Name: "pages", Type: "Int"},
		}},
	}}
}

func rootInfo(field string) *middleware.ResolveInfo {
	return &middleware.ResolveInfo{
		FieldName: field,
		Path:      &middleware.Path{Key: field},
	}
}

// Test: generator flags control which fields and types appear in the SDL
func TestGenerateSDL(t *testing.T) {
	sdl := GenerateSDL(reportModels(), defaultGeneratorSettings())

	assert.Contains(t, sdl, "type Report {")
	assert.Contains(t, sdl, "input ReportInput {")
	assert.Contains(t, sdl, "input ReportFilterInput {")
	assert.Contains(t, sdl, "report(id: ID!): Report")
	assert.Contains(t, sdl, "allReports")
	assert.Contains(t, sdl, "createReport(input: ReportInput!): Report")
	assert.Contains(t, sdl, "deleteReport(id: ID!): Boolean")
	assert.NotContains(t, sdl, "type Subscription")

	cfg := defaultGeneratorSettings()
	cfg.Mutation = settings.MutationGeneratorSettings{}
	cfg.Filtering.EnableFiltering = false
	sdl = GenerateSDL(reportModels(), cfg)
	assert.NotContains(t, sdl, "createReport")
	assert.NotContains(t, sdl, "ReportFilterInput")
	// The input type is only rendered when a mutation consumes it.
	assert.NotContains(t, sdl, "input ReportInput")
}

// Test: the compiled schema parses and stays identical until a rebuild
func TestBuilder_SchemaCaching(t *testing.T) {
	b := NewBuilder("reports", reportModels(), defaultGeneratorSettings(), zerolog.Nop())
	assert.Equal(t, int64(1), b.SchemaVersion())

	first, err := b.Schema()
	require.NoError(t, err)
	require.NotNil(t, first.Document)

	again, err := b.Schema()
	require.NoError(t, err)
	assert.Same(t, first, again)

	rebuilt, err := b.RebuildSchema()
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, int64(2), b.SchemaVersion())
	assert.Equal(t, int64(2), rebuilt.Version)
}

// Test: create, get, update, list, and delete flow through the generated resolver
func TestBuilder_ResolverCRUD(t *testing.T) {
	b := NewBuilder("reports", reportModels(), defaultGeneratorSettings(), zerolog.Nop())
	resolve := b.Resolver()

	created, err := resolve(nil, rootInfo("createReport"),
		map[string]any{"input": map[string]any{"title": "Q1"}})
	require.NoError(t, err)
	record := created.(map[string]any)
	id := record["id"].(string)
	assert.Equal(t, "Q1", record["title"])

	got, err := resolve(nil, rootInfo("report"), map[string]any{"id": id})
	require.NoError(t, err)
	assert.Equal(t, "Q1", got.(map[string]any)["title"])

	updated, err := resolve(nil, rootInfo("updateReport"),
		map[string]any{"id": id, "input": map[string]any{"title": "Q1 final"}})
	require.NoError(t, err)
	assert.Equal(t, "Q1 final", updated.(map[string]any)["title"])

	list, err := resolve(nil, rootInfo("allReports"), nil)
	require.NoError(t, err)
	assert.Len(t, list.([]map[string]any), 1)

	deleted, err := resolve(nil, rootInfo("deleteReport"), map[string]any{"id": id})
	require.NoError(t, err)
	assert.Equal(t, true, deleted)

	missing, err := resolve(nil, rootInfo("report"), map[string]any{"id": id})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// Test: unknown root fields are an error, nested fields read off the parent
func TestBuilder_ResolverDispatch(t *testing.T) {
	b := NewBuilder("reports", reportModels(), defaultGeneratorSettings(), zerolog.Nop())
	resolve := b.Resolver()

	_, err := resolve(nil, rootInfo("nonsense"), nil)
	require.Error(t, err)

	parent := map[string]any{"title": "nested"}
	nested := &middleware.ResolveInfo{
		FieldName: "title",
		Path:      &middleware.Path{Prev: &middleware.Path{Key: "report"}, Key: "title"},
	}
	value, err := resolve(parent, nested, nil)
	require.NoError(t, err)
	assert.Equal(t, "nested", value)
}

// Test: list arguments clamp limits and apply generated filters
func TestBuilder_ListArguments(t *testing.T) {
	cfg := defaultGeneratorSettings()
	cfg.Query.MaxPageSize = 2
	b := NewBuilder("reports", reportModels(), cfg, zerolog.Nop())
	resolve := b.Resolver()

	for _, title := range []string{"alpha", "beta", "gamma"} {
		_, err := resolve(nil, rootInfo("createReport"),
			map[string]any{"input": map[string]any{"title": title}})
		require.NoError(t, err)
	}

	list, err := resolve(nil, rootInfo("allReports"), map[string]any{"limit": 10})
	require.NoError(t, err)
	assert.Len(t, list.([]map[string]any), 2)

	list, err = resolve(nil, rootInfo("allReports"), map[string]any{
		"filter": map[string]any{"title_contains": "eta"},
	})
	require.NoError(t, err)
	records := list.([]map[string]any)
	require.Len(t, records, 1)
	assert.Equal(t, "beta", records[0]["title"])

	list, err = resolve(nil, rootInfo("allReports"), map[string]any{
		"orderBy": "title", "offset": 1, "limit": 1,
	})
	require.NoError(t, err)
	records = list.([]map[string]any)
	require.Len(t, records, 1)
	assert.Equal(t, "beta", records[0]["title"])
}

// Test: introspection data names the generated types and resolves lookups
func TestBuilder_Introspection(t *testing.T) {
	b := NewBuilder("reports", reportModels(), defaultGeneratorSettings(), zerolog.Nop())

	data := b.IntrospectionData()
	queryType := data["queryType"].(map[string]any)
	assert.Equal(t, "Query", queryType["name"])

	names := map[string]bool{}
	for _, raw := range data["types"].([]any) {
		typ := raw.(map[string]any)
		names[typ["name"].(string)] = true
	}
	assert.True(t, names["Report"])
	assert.True(t, names["ReportInput"])
	assert.True(t, names["String"])

	typ := b.TypeByName("report")
	require.NotNil(t, typ)
	assert.Equal(t, "Report", typ["name"])
	assert.Nil(t, b.TypeByName("Nope"))
}
