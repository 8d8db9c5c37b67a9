package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// manifestFile is the conventional per-app model manifest name.
const manifestFile = "models.json"

// Catalog is a thread-safe collection of apps keyed by name.
type Catalog struct {
	mu   sync.RWMutex
	apps map[string]*App
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{apps: make(map[string]*App)}
}

// RegisterApp adds or replaces an app.
func (c *Catalog) RegisterApp(app *App) error {
	if app == nil || app.Name == "" {
		return fmt.Errorf("app must have a name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apps[app.Name] = app
	return nil
}

// LoadAppDir loads an app from the models.json manifest inside dir and registers it.
func (c *Catalog) LoadAppDir(dir string) (*App, error) {
	path := filepath.Join(dir, manifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read app manifest: %w", err)
	}

	var app App
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse app manifest %s: %w", path, err)
	}
	if app.Name == "" {
		app.Name = filepath.Base(dir)
	}
	app.Dir = dir

	if err := c.RegisterApp(&app); err != nil {
		return nil, err
	}
	return &app, nil
}

// App returns the named app, or nil when unknown.
func (c *Catalog) App(name string) *App {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apps[name]
}

// HasApp reports whether the named app is registered.
func (c *Catalog) HasApp(name string) bool {
	return c.App(name) != nil
}

// AppNames returns all registered app names, sorted.
func (c *Catalog) AppNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.apps))
	for name := range c.apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apps returns all registered apps, sorted by name.
func (c *Catalog) Apps() []*App {
	names := c.AppNames()
	c.mu.RLock()
	defer c.mu.RUnlock()
	apps := make([]*App, 0, len(names))
	for _, name := range names {
		apps = append(apps, c.apps[name])
	}
	return apps
}

// Models returns the models of the named app. Unknown apps yield nil.
func (c *Catalog) Models(appName string) []Model {
	app := c.App(appName)
	if app == nil {
		return nil
	}
	return app.Models
}

// Dirs returns the manifest directories of all file-loaded apps.
func (c *Catalog) Dirs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var dirs []string
	for _, app := range c.apps {
		if app.Dir != "" {
			dirs = append(dirs, app.Dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}
