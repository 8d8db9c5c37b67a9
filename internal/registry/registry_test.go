package registry

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmux/graphmux/internal/catalog"
	"github.com/graphmux/graphmux/internal/settings"
)

// Test Plan:
// 1. Test register is an idempotent upsert that evicts derived caches and
//    replaces settings overrides
// 2. Test unregister removes the schema and its cached builder and instance
// 3. Test a schema named graphiql gets debug-gated defaults at registration
// 4. Test hook errors are swallowed and registration still succeeds
// 5. Test enable and disable flip the flag and report existence
// 6. Test model scope resolution with allowlist and exclusions
// 7. Test schema validation flags unknown apps and empty scopes
// 8. Test SchemaInstance returns the identical compiled schema until rebuild
// 9. Test Clear empties the registry and re-arms discovery

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.RegisterApp(&catalog.App{
		Name: "reports",
		Models: []catalog.Model{
			{Name: "Report", Fields: []catalog.Field{
				{Name: "id", Type: "string", Required: true},
				{Name: "title", Type: "string", Required: true},
			}},
			{Name: "Section", Fields: []catalog.Field{
				{Name: "id", Type: "string", Required: true},
				{Name: "heading", Type: "string"},
			}},
		},
	}))
	require.NoError(t, cat.RegisterApp(&catalog.App{
		Name: "billing",
		Models: []catalog.Model{
			{Name: "Invoice", Fields: []catalog.Field{
				{Name: "id", Type: "string", Required: true},
				{Name: "total", Type: "float"},
			}},
		},
	}))
	return cat
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	res := settings.NewResolver(false, "production", nil, zerolog.Nop())
	return New(testCatalog(t), res, zerolog.Nop())
}

// Test: registering the same name twice updates in place and keeps one entry
func TestRegister_Upsert(t *testing.T) {
	reg := testRegistry(t)

	first, err := reg.Register("reports", RegisterOptions{
		Description: "first",
		Apps:        []string{"reports"},
	})
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := reg.Register("reports", RegisterOptions{
		Description: "second",
		Apps:        []string{"reports", "billing"},
	})
	require.NoError(t, err)
	assert.Equal(t, "second", second.Description)
	assert.Len(t, reg.List(false), 1)
	assert.Equal(t, []string{"reports", "billing"}, reg.Get("reports").Apps)
}

// Test: re-registration replaces settings overrides instead of merging over them
func TestRegister_UpsertReplacesSettings(t *testing.T) {
	res := settings.NewResolver(false, "production", nil, zerolog.Nop())
	reg := New(testCatalog(t), res, zerolog.Nop())

	_, err := reg.Register("reports", RegisterOptions{
		Apps: []string{"reports"},
		Settings: map[string]any{
			"schema_settings": map[string]any{"enable_graphiql": false},
		},
	})
	require.NoError(t, err)
	assert.False(t, settings.SchemaSettingsFromSchema(res, "reports").EnableGraphiQL)

	_, err = reg.Register("reports", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)
	assert.True(t, settings.SchemaSettingsFromSchema(res, "reports").EnableGraphiQL)
}

// Test: re-registration evicts the cached builder so scope changes take effect
func TestRegister_EvictsBuilderCache(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.Register("reports", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)

	before, err := reg.SchemaBuilder("reports")
	require.NoError(t, err)

	_, err = reg.Register("reports", RegisterOptions{Apps: []string{"billing"}})
	require.NoError(t, err)

	after, err := reg.SchemaBuilder("reports")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
}

// Test: unregister removes the entry and reports whether anything existed
func TestUnregister(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.Register("reports", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)
	_, err = reg.SchemaInstance("reports")
	require.NoError(t, err)

	assert.True(t, reg.Unregister("reports"))
	assert.False(t, reg.Exists("reports"))
	assert.False(t, reg.Unregister("reports"))

	_, err = reg.SchemaBuilder("reports")
	require.Error(t, err)
}

// Test: the graphiql schema defaults its sensitive flags from the debug flag
func TestRegister_GraphiQLDefaults(t *testing.T) {
	res := settings.NewResolver(false, "production", nil, zerolog.Nop())
	reg := New(testCatalog(t), res, zerolog.Nop())

	_, err := reg.Register("graphiql", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)

	ss := settings.SchemaSettingsFromSchema(res, "graphiql")
	assert.False(t, ss.EnableGraphiQL)
	assert.False(t, ss.EnableIntrospection)
	assert.True(t, ss.AuthenticationRequired)
}

// Test: a failing hook is logged and swallowed, never blocking registration
func TestRegister_HookErrorsSwallowed(t *testing.T) {
	reg := testRegistry(t)
	preCalled, postCalled := false, false
	reg.AddPreRegisterHook(func(name string, opts *RegisterOptions) error {
		preCalled = true
		opts.Description = "from hook"
		return errors.New("pre hook broke")
	})
	reg.AddPostRegisterHook(func(info *SchemaInfo) error {
		postCalled = true
		return errors.New("post hook broke")
	})

	info, err := reg.Register("reports", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)
	assert.True(t, preCalled)
	assert.True(t, postCalled)
	assert.Equal(t, "from hook", info.Description)
}

// Test: enable and disable flip the flag and gate the builder
func TestEnableDisable(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.Register("reports", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)

	assert.True(t, reg.Disable("reports"))
	assert.False(t, reg.Get("reports").Enabled)
	assert.Empty(t, reg.Names(true))

	_, err = reg.SchemaBuilder("reports")
	require.Error(t, err)

	assert.True(t, reg.Enable("reports"))
	assert.False(t, reg.Enable("missing"))
	_, err = reg.SchemaBuilder("reports")
	require.NoError(t, err)
}

// Test: model scope honors app union, allowlist, and exclusions
func TestModelsForSchema(t *testing.T) {
	reg := testRegistry(t)

	_, err := reg.Register("everything", RegisterOptions{Apps: []string{"reports", "billing"}})
	require.NoError(t, err)
	assert.Len(t, reg.ModelsForSchema("everything"), 3)

	_, err = reg.Register("allowlisted", RegisterOptions{
		Apps:   []string{"reports", "billing"},
		Models: []string{"report", "billing.Invoice"},
	})
	require.NoError(t, err)
	models := reg.ModelsForSchema("allowlisted")
	require.Len(t, models, 2)

	_, err = reg.Register("trimmed", RegisterOptions{
		Apps:          []string{"reports"},
		ExcludeModels: []string{"SECTION"},
	})
	require.NoError(t, err)
	models = reg.ModelsForSchema("trimmed")
	require.Len(t, models, 1)
	assert.Equal(t, "Report", models[0].Model.Name)

	// Unknown app labels are skipped, not fatal.
	_, err = reg.Register("partial", RegisterOptions{Apps: []string{"reports", "nope"}})
	require.NoError(t, err)
	assert.Len(t, reg.ModelsForSchema("partial"), 2)
}

// Test: validation errors on unknown apps and warns on an empty scope
func TestValidateSchema(t *testing.T) {
	reg := testRegistry(t)

	result := reg.ValidateSchema("missing")
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)

	_, err := reg.Register("bad", RegisterOptions{Apps: []string{"nope"}})
	require.NoError(t, err)
	result = reg.ValidateSchema("bad")
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
	assert.NotEmpty(t, result.Warnings)
	assert.Zero(t, result.ModelCount)

	_, err = reg.Register("good", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)
	result = reg.ValidateSchema("good")
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.ModelCount)
}

// Test: repeated SchemaInstance calls return the identical compiled schema
func TestSchemaInstance_CacheIdentity(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.Register("reports", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)

	first, err := reg.SchemaInstance("reports")
	require.NoError(t, err)
	second, err := reg.SchemaInstance("reports")
	require.NoError(t, err)
	assert.Same(t, first, second)

	builder, err := reg.SchemaBuilder("reports")
	require.NoError(t, err)
	_, err = builder.RebuildSchema()
	require.NoError(t, err)

	third, err := reg.SchemaInstance("reports")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Greater(t, third.Version, first.Version)
}

// Test: Clear empties everything and resets the discovery guard
func TestClear(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.Register("reports", RegisterOptions{Apps: []string{"reports"}})
	require.NoError(t, err)

	reg.mu.Lock()
	reg.discovered = true
	reg.mu.Unlock()

	reg.Clear()
	assert.Empty(t, reg.List(false))
	reg.mu.RLock()
	assert.False(t, reg.discovered)
	reg.mu.RUnlock()
}
