package gateway

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmux/graphmux/internal/catalog"
	"github.com/graphmux/graphmux/internal/schemagen"
	"github.com/graphmux/graphmux/internal/settings"
)

// Test Plan:
// 1. Test empty and unparseable queries produce coded errors
// 2. Test named operation selection picks the right operation
// 3. Test variables substitute into nested argument objects
// 4. Test a resolver error nulls the field and records its path
// 5. Test a missing variable is reported without aborting siblings

func testBuilder(t *testing.T) *schemagen.Builder {
	t.Helper()
	models := []schemagen.ScopedModel{{
		App: "reports",
		Model: catalog.Model{Name: "Report", Fields: []catalog.Field{
			{Name: "id", Type: "string", Required: true},
			{Name: "title", Type: "string", Required: true},
		}},
	}}
	cfg := schemagen.GeneratorSettings{
		Type:      settings.DefaultTypeGeneratorSettings(),
		Query:     settings.DefaultQueryGeneratorSettings(),
		Mutation:  settings.DefaultMutationGeneratorSettings(),
		Filtering: settings.DefaultFilteringSettings(),
	}
	return schemagen.NewBuilder("reports", models, cfg, zerolog.Nop())
}

func run(t *testing.T, builder *schemagen.Builder, query, operationName string, variables map[string]any) *graphqlResponse {
	t.Helper()
	schema, err := builder.Schema()
	require.NoError(t, err)
	e := newExecutor(zerolog.Nop())
	return e.execute(context.Background(), executionInput{
		SchemaName:    "reports",
		Schema:        schema,
		Resolver:      builder.Resolver(),
		Query:         query,
		OperationName: operationName,
		Variables:     variables,
		ClientKey:     "test",
	})
}

// Test: an empty query is a coded bad request, not a parse attempt
func TestExecute_EmptyQuery(t *testing.T) {
	resp := run(t, testBuilder(t), "   ", "", nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, codeBadRequest, resp.Errors[0].Extensions["code"])
}

// Test: a syntactically broken query reports a parse failure
func TestExecute_ParseFailure(t *testing.T) {
	resp := run(t, testBuilder(t), "{ allReports {", "", nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "GRAPHQL_PARSE_FAILED", resp.Errors[0].Extensions["code"])
}

// Test: the named operation runs and the other is ignored
func TestExecute_NamedOperation(t *testing.T) {
	builder := testBuilder(t)
	query := `
		mutation MakeOne { createReport(input: {title: "first"}) { title } }
		query ListAll { allReports { title } }
	`
	resp := run(t, builder, query, "ListAll", nil)
	require.Empty(t, resp.Errors)
	assert.Contains(t, resp.Data, "allReports")
	assert.NotContains(t, resp.Data, "createReport")

	resp = run(t, builder, query, "Absent", nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, codeBadRequest, resp.Errors[0].Extensions["code"])
}

// Test: variables substitute inside nested input objects
func TestExecute_Variables(t *testing.T) {
	builder := testBuilder(t)
	resp := run(t, builder,
		`mutation Make($t: String) { createReport(input: {title: $t}) { title } }`,
		"", map[string]any{"t": "from variables"})
	require.Empty(t, resp.Errors)
	created := resp.Data["createReport"].(map[string]any)
	assert.Equal(t, "from variables", created["title"])
}

// Test: an unknown root field nulls out with a path and an internal code
func TestExecute_ResolverError(t *testing.T) {
	resp := run(t, testBuilder(t), `{ nope }`, "", nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, codeInternalError, resp.Errors[0].Extensions["code"])
	assert.Equal(t, []any{"nope"}, resp.Errors[0].Path)
	assert.Contains(t, resp.Data, "nope")
	assert.Nil(t, resp.Data["nope"])
}

// Test: a missing variable fails its field but sibling fields still resolve
func TestExecute_MissingVariable(t *testing.T) {
	builder := testBuilder(t)
	resp := run(t, builder,
		`query Q($id: String!) { report(id: $id) { id } allReports { id } }`,
		"", nil)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "$id")
	assert.Contains(t, resp.Data, "allReports")
	assert.Nil(t, resp.Data["report"])
}
