package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/graphmux/graphmux/internal/config"
)

// DiscoveryHook runs during discovery, after app scanning and before
// config-declared schemas. Errors are logged and swallowed.
type DiscoveryHook func(r *Registry) error

// declarationFiles are the conventional schema declaration paths probed inside
// each app directory, in order. The first match wins per app.
var declarationFiles = []string{
	"schemas.json",
	"graphql_schema.json",
	"schema.json",
	filepath.Join("graphql", "schema.json"),
}

// schemaDecl is one schema declaration as found in a declaration file or the
// schema store.
type schemaDecl struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Version       string         `json:"version"`
	Apps          []string       `json:"apps"`
	Models        []string       `json:"models"`
	ExcludeModels []string       `json:"exclude_models"`
	Settings      map[string]any `json:"settings"`
	AutoDiscover  bool           `json:"auto_discover"`
	Enabled       *bool          `json:"enabled"`
}

func (d schemaDecl) options() RegisterOptions {
	return RegisterOptions{
		Description:   d.Description,
		Version:       d.Version,
		Apps:          d.Apps,
		Models:        d.Models,
		ExcludeModels: d.ExcludeModels,
		Settings:      d.Settings,
		AutoDiscover:  d.AutoDiscover,
		Enabled:       d.Enabled,
	}
}

// AddDiscoveryHook installs a discovery hook.
func (r *Registry) AddDiscoveryHook(hook DiscoveryHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discoveryHooks = append(r.discoveryHooks, hook)
}

// Discover runs the full discovery sequence once per process: app declaration
// files, discovery hooks, schemas declared in configuration, and the persisted
// schema store. Subsequent calls no-op until Clear resets the flag.
func (r *Registry) Discover(cfg *config.Config) int {
	r.mu.Lock()
	if r.discovered {
		r.mu.Unlock()
		return 0
	}
	r.discovered = true
	hooks := append([]DiscoveryHook(nil), r.discoveryHooks...)
	r.mu.Unlock()

	count := r.scanAppDirs()

	for _, hook := range hooks {
		if err := hook(r); err != nil {
			r.logger.Warn().Err(err).Msg("discovery hook failed")
		}
	}

	count += r.registerConfigSchemas(cfg)
	count += r.loadSchemaStore(cfg.SchemaStore)

	r.logger.Info().Int("count", count).Msg("schema discovery complete")
	return count
}

// AutoDiscover re-scans app declaration files unconditionally and returns the
// number of newly discovered schemas. Used by refresh-now admin flows.
func (r *Registry) AutoDiscover() int {
	count := 0
	for _, dir := range r.catalog.Dirs() {
		decls, path := readDeclarations(dir)
		if path == "" {
			continue
		}
		for _, decl := range decls {
			if decl.Name == "" || r.Exists(decl.Name) {
				continue
			}
			if _, err := r.Register(decl.Name, decl.options()); err != nil {
				r.logger.Warn().Err(err).Str("path", path).Msg("failed to register discovered schema")
				continue
			}
			count++
		}
	}
	return count
}

// scanAppDirs registers every schema declared by an app directory.
func (r *Registry) scanAppDirs() int {
	count := 0
	for _, dir := range r.catalog.Dirs() {
		decls, path := readDeclarations(dir)
		if path == "" {
			continue
		}
		for _, decl := range decls {
			if decl.Name == "" {
				r.logger.Warn().Str("path", path).Msg("skipping unnamed schema declaration")
				continue
			}
			if _, err := r.Register(decl.Name, decl.options()); err != nil {
				r.logger.Warn().Err(err).Str("path", path).Msg("failed to register discovered schema")
				continue
			}
			count++
		}
	}
	return count
}

// registerConfigSchemas registers schemas declared in graphmux.yaml, skipping
// names that already exist: configuration never overrides app-declared schemas.
func (r *Registry) registerConfigSchemas(cfg *config.Config) int {
	count := 0
	for name, decl := range cfg.Schemas {
		if r.Exists(name) {
			continue
		}
		opts := RegisterOptions{
			Description:   decl.Description,
			Version:       decl.Version,
			Apps:          decl.Apps,
			Models:        decl.Models,
			ExcludeModels: decl.ExcludeModels,
			Settings:      decl.Settings,
			Enabled:       decl.Enabled,
		}
		if _, err := r.Register(name, opts); err != nil {
			r.logger.Warn().Err(err).Str("schema", name).Msg("failed to register config schema")
			continue
		}
		count++
	}
	return count
}

// loadSchemaStore registers schemas persisted in the schema store file. A missing
// store is normal before the first save and registers nothing.
func (r *Registry) loadSchemaStore(path string) int {
	if path == "" {
		return 0
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", path).Msg("failed to read schema store")
		}
		return 0
	}

	var decls []schemaDecl
	if err := json.Unmarshal(data, &decls); err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("malformed schema store")
		return 0
	}

	count := 0
	for _, decl := range decls {
		if decl.Name == "" || r.Exists(decl.Name) {
			continue
		}
		if _, err := r.Register(decl.Name, decl.options()); err != nil {
			r.logger.Warn().Err(err).Str("path", path).Msg("failed to register stored schema")
			continue
		}
		count++
	}
	return count
}

// SaveSchemaStore writes every registered schema back to the store file.
func (r *Registry) SaveSchemaStore(path string) error {
	if path == "" {
		return fmt.Errorf("schema store path is empty")
	}

	infos := r.List(false)
	decls := make([]schemaDecl, 0, len(infos))
	for _, info := range infos {
		enabled := info.Enabled
		decls = append(decls, schemaDecl{
			Name:          info.Name,
			Description:   info.Description,
			Version:       info.Version,
			Apps:          info.Apps,
			Models:        info.Models,
			ExcludeModels: info.ExcludeModels,
			Settings:      info.Settings,
			AutoDiscover:  info.AutoDiscover,
			Enabled:       &enabled,
		})
	}

	data, err := json.MarshalIndent(decls, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema store: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write schema store: %w", err)
	}
	return nil
}

// readDeclarations probes the conventional declaration paths in one app directory
// and decodes the first that exists. The file may hold one declaration object or
// a list.
func readDeclarations(dir string) ([]schemaDecl, string) {
	for _, rel := range declarationFiles {
		path := filepath.Join(dir, rel)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var list []schemaDecl
		if err := json.Unmarshal(data, &list); err == nil {
			return list, path
		}
		var single schemaDecl
		if err := json.Unmarshal(data, &single); err == nil {
			return []schemaDecl{single}, path
		}
		return nil, path
	}
	return nil, ""
}
