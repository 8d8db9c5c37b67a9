package gateway

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan:
// 1. Test upload map path splitting for dotted and bracketed segments
// 2. Test multipart operations and map rewriting places files into variables
// 3. Test batch array bodies are detected and object bodies are not
// 4. Test raw graphql content type bodies become query payloads
// 5. Test malformed JSON bodies are rejected

// Test: dotted and bracketed paths split into the same segments
func TestSplitUploadPath(t *testing.T) {
	assert.Equal(t, []string{"variables", "file"}, splitUploadPath("variables.file"))
	assert.Equal(t, []string{"variables", "files", "0"}, splitUploadPath("variables.files.0"))
	assert.Equal(t, []string{"variables", "files", "1"}, splitUploadPath("variables.files[1]"))
	assert.Equal(t, []string{"0", "variables", "file"}, splitUploadPath("0.variables.file"))
	assert.Equal(t, []string{"ops", "2", "nested"}, splitUploadPath("ops[2].nested"))
}

// Test: the upload map rewrites nested and array paths to file handles
func TestParseMultipart_UploadConvention(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("operations",
		`{"query": "mutation ($file: Upload!) { attach(file: $file) }", "variables": {"file": null, "extras": [null, null]}}`))
	require.NoError(t, w.WriteField("map",
		`{"0": ["variables.file"], "1": ["variables.extras[1]"]}`))
	part0, err := w.CreateFormFile("0", "report.csv")
	require.NoError(t, err)
	_, err = part0.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	part1, err := w.CreateFormFile("1", "notes.txt")
	require.NoError(t, err)
	_, err = part1.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := httptest.NewRequest("POST", "/graphql/reports/", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())

	body, err := parseBody(r)
	require.NoError(t, err)
	require.Len(t, body.payloads, 1)
	assert.False(t, body.isBatch)

	variables, ok := body.payloads[0]["variables"].(map[string]any)
	require.True(t, ok)
	require.NotNil(t, variables["file"])

	extras, ok := variables["extras"].([]any)
	require.True(t, ok)
	assert.Nil(t, extras[0])
	assert.NotNil(t, extras[1])
}

// Test: a map path pointing nowhere is an error, not a silent drop
func TestParseMultipart_BadPath(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("operations", `{"query": "{ ping }", "variables": {}}`))
	require.NoError(t, w.WriteField("map", `{"0": ["variables.missing.deep"]}`))
	part, err := w.CreateFormFile("0", "x.bin")
	require.NoError(t, err)
	_, err = part.Write([]byte{1})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := httptest.NewRequest("POST", "/graphql/reports/", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())

	_, err = parseBody(r)
	require.Error(t, err)
}

// Test: array bodies are batch, object bodies are not
func TestParseJSON_BatchDetection(t *testing.T) {
	r := httptest.NewRequest("POST", "/graphql/reports/",
		strings.NewReader(`[{"query": "{ a }"}, {"query": "{ b }"}]`))
	r.Header.Set("Content-Type", "application/json")
	body, err := parseBody(r)
	require.NoError(t, err)
	assert.True(t, body.isBatch)
	assert.Len(t, body.payloads, 2)

	r = httptest.NewRequest("POST", "/graphql/reports/",
		strings.NewReader(`{"query": "{ a }"}`))
	r.Header.Set("Content-Type", "application/json")
	body, err = parseBody(r)
	require.NoError(t, err)
	assert.False(t, body.isBatch)
	assert.Len(t, body.payloads, 1)
}

// Test: an application/graphql body is the query text verbatim
func TestParseBody_RawGraphQL(t *testing.T) {
	r := httptest.NewRequest("POST", "/graphql/reports/", strings.NewReader("{ ping }"))
	r.Header.Set("Content-Type", "application/graphql")
	body, err := parseBody(r)
	require.NoError(t, err)
	require.Len(t, body.payloads, 1)
	assert.Equal(t, "{ ping }", body.payloads[0]["query"])
}

// Test: malformed JSON is a parse error
func TestParseBody_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/graphql/reports/", strings.NewReader(`{"query": `))
	r.Header.Set("Content-Type", "application/json")
	_, err := parseBody(r)
	require.Error(t, err)
}
