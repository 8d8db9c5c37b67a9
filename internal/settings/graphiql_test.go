package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan:
// 1. Test debug-gated defaults under debug on and off
// 2. Test explicit values always win over the auto-defaults
// 3. Test explicit detection across nested, direct, and legacy spellings

func nestedSchema(t *testing.T, m map[string]any) map[string]any {
	t.Helper()
	nested, ok := m[string(SectionSchema)].(map[string]any)
	require.True(t, ok)
	return nested
}

// Test: under debug the explorer and introspection open up, auth relaxes
func TestApplyGraphiQLDefaults_Debug(t *testing.T) {
	out := ApplyGraphiQLDefaults(nil, true)
	nested := nestedSchema(t, out)

	assert.Equal(t, true, nested["enable_graphiql"])
	assert.Equal(t, true, nested["enable_introspection"])
	assert.Equal(t, false, nested["authentication_required"])
}

// Test: without debug the defaults lock the schema down
func TestApplyGraphiQLDefaults_Production(t *testing.T) {
	out := ApplyGraphiQLDefaults(nil, false)
	nested := nestedSchema(t, out)

	assert.Equal(t, false, nested["enable_graphiql"])
	assert.Equal(t, false, nested["enable_introspection"])
	assert.Equal(t, true, nested["authentication_required"])
}

// Test: an explicit nested value survives even when it contradicts the default
func TestApplyGraphiQLDefaults_ExplicitNestedWins(t *testing.T) {
	in := map[string]any{
		string(SectionSchema): map[string]any{"enable_introspection": true},
	}
	out := ApplyGraphiQLDefaults(in, false)
	nested := nestedSchema(t, out)

	assert.Equal(t, true, nested["enable_introspection"])
	// The other two still get defaults.
	assert.Equal(t, false, nested["enable_graphiql"])
	assert.Equal(t, true, nested["authentication_required"])
}

// Test: a direct top-level key counts as explicitly set
func TestApplyGraphiQLDefaults_DirectKeyCounts(t *testing.T) {
	in := map[string]any{"enable_graphiql": true}
	out := ApplyGraphiQLDefaults(in, false)
	nested := nestedSchema(t, out)

	_, injected := nested["enable_graphiql"]
	assert.False(t, injected)
	assert.Equal(t, true, out["enable_graphiql"])
}

// Test: the legacy upper-snake spelling counts as explicitly set
func TestApplyGraphiQLDefaults_LegacySpellingCounts(t *testing.T) {
	in := map[string]any{"ENABLE_GRAPHIQL": true}
	out := ApplyGraphiQLDefaults(in, false)
	nested := nestedSchema(t, out)

	_, injected := nested["enable_graphiql"]
	assert.False(t, injected)
}

// Test: the input map is not mutated
func TestApplyGraphiQLDefaults_NoInputMutation(t *testing.T) {
	in := map[string]any{
		string(SectionSchema): map[string]any{"pretty_print": true},
	}
	_ = ApplyGraphiQLDefaults(in, true)

	nested := in[string(SectionSchema)].(map[string]any)
	assert.Len(t, nested, 1)
}
