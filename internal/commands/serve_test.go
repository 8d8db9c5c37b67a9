// Test Plan:
// 1. buildPipeline loads app directories, discovers declared schemas, and leaves
//    redis nil when no address is configured.
// 2. The assembled pipeline serves a GraphQL request end to end over its router.
// 3. A missing app directory fails pipeline construction.

package commands

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmux/graphmux/internal/config"
)

func writeTestApp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	appDir := filepath.Join(dir, "reports")
	require.NoError(t, os.MkdirAll(appDir, 0o755))

	models := `{
		"app": "reports",
		"models": [
			{"name": "Report", "fields": [
				{"name": "id", "type": "string", "required": true},
				{"name": "title", "type": "string", "required": true}
			]}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "models.json"), []byte(models), 0o644))

	schemas := `{"name": "reports", "description": "reporting", "apps": ["reports"]}`
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "schemas.json"), []byte(schemas), 0o644))
	return appDir
}

func TestBuildPipeline(t *testing.T) {
	// Test: config with one app dir produces a registry with its declared schema
	appDir := writeTestApp(t)
	cfg := &config.Config{
		Environment: "development",
		Apps:        []string{appDir},
	}

	p, err := buildPipeline(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer p.close()

	require.NotNil(t, p.registry.Get("reports"))
	assert.Nil(t, p.redis)
}

func TestBuildPipeline_ServesRequests(t *testing.T) {
	// Test: the wired pipeline answers a GraphQL query over HTTP
	appDir := writeTestApp(t)
	cfg := &config.Config{
		Environment: "development",
		Apps:        []string{appDir},
		PersistedQuery: config.PersistedQueryConfig{
			Enabled: true,
		},
	}

	p, err := buildPipeline(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer p.close()

	r := httptest.NewRequest(http.MethodPost, "/graphql/reports/",
		strings.NewReader(`{"query": "{ allReports { id } }"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	p.view.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allReports"`)
}

func TestBuildPipeline_MissingAppDir(t *testing.T) {
	// Test: a nonexistent app directory is a construction error, not a warning
	cfg := &config.Config{
		Environment: "development",
		Apps:        []string{filepath.Join(t.TempDir(), "absent")},
	}

	_, err := buildPipeline(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load app directory")
}
