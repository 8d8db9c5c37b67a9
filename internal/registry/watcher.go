package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// watchedFiles are the file names whose changes trigger a registry refresh:
// schema declaration files and model manifests.
var watchedFiles = []string{
	"schemas.json",
	"graphql_schema.json",
	"schema.json",
	"models.json",
}

// Watcher re-runs schema discovery when declaration or manifest files change.
// Events are debounced so one editor save does not trigger multiple rescans.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger
}

// NewWatcher creates a watcher over the registry's app directories.
func NewWatcher(reg *Registry, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		registry: reg,
		watcher:  fsw,
		debounce: 250 * time.Millisecond,
		logger:   logger.With().Str("component", "schema-watcher").Logger(),
	}
	for _, dir := range reg.catalog.Dirs() {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	return w, nil
}

// Start blocks processing events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	var pending *time.Timer
	refresh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				pending.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("schema file changed")
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(w.debounce, func() {
				select {
				case refresh <- struct{}{}:
				default:
				}
			})

		case <-refresh:
			count := w.registry.AutoDiscover()
			w.logger.Info().Int("new_schemas", count).Msg("registry refreshed")

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			if err != nil {
				w.logger.Warn().Err(err).Msg("watcher error")
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	for _, name := range watchedFiles {
		if base == name {
			return true
		}
	}
	return false
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
