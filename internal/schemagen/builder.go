// Package schemagen compiles a model scope plus generator settings into an
// executable GraphQL schema: SDL text, a parsed document, and the field resolvers
// backing the generated query and mutation fields.
package schemagen

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/ast"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/astparser"

	"github.com/graphmux/graphmux/internal/catalog"
	"github.com/graphmux/graphmux/internal/middleware"
)

// ScopedModel is a model together with the app it came from.
type ScopedModel struct {
	App   string
	Model catalog.Model
}

// CompiledSchema is the product of one build: immutable once returned.
type CompiledSchema struct {
	SDL      string
	Document *ast.Document
	Version  int64
}

// Builder compiles one named schema and tracks a monotonically increasing version
// token. The compiled schema is cached until RebuildSchema bumps the version.
type Builder struct {
	schemaName string
	models     []ScopedModel
	cfg        GeneratorSettings
	logger     zerolog.Logger

	mu       sync.Mutex
	version  int64
	compiled *CompiledSchema

	store    *memoryStore
	handlers map[string]fieldHandler

	extraMiddleware []middleware.Middleware
}

type fieldHandler func(args map[string]any) (any, error)

// NewBuilder creates a builder for the named schema over the given model scope.
func NewBuilder(schemaName string, models []ScopedModel, cfg GeneratorSettings, logger zerolog.Logger) *Builder {
	b := &Builder{
		schemaName: schemaName,
		models:     models,
		cfg:        cfg,
		logger:     logger.With().Str("component", "builder").Str("schema", schemaName).Logger(),
		version:    1,
		store:      newMemoryStore(),
	}
	b.handlers = b.buildHandlers()
	return b
}

// SchemaName returns the schema this builder compiles.
func (b *Builder) SchemaName() string { return b.schemaName }

// SchemaVersion returns the current structural version token. It increases whenever
// the builder rebuilds.
func (b *Builder) SchemaVersion() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Schema returns the compiled schema for the current version, compiling on first
// call and after each rebuild.
func (b *Builder) Schema() (*CompiledSchema, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.compiled != nil && b.compiled.Version == b.version {
		return b.compiled, nil
	}
	compiled, err := b.compile()
	if err != nil {
		return nil, err
	}
	b.compiled = compiled
	return compiled, nil
}

// RebuildSchema bumps the version and compiles immediately.
func (b *Builder) RebuildSchema() (*CompiledSchema, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.version++
	compiled, err := b.compile()
	if err != nil {
		return nil, err
	}
	b.compiled = compiled
	b.logger.Info().Int64("version", b.version).Msg("schema rebuilt")
	return compiled, nil
}

// Middleware returns builder-supplied middleware to run ahead of the standard stack.
func (b *Builder) Middleware() []middleware.Middleware {
	return b.extraMiddleware
}

// SetMiddleware installs builder-supplied middleware.
func (b *Builder) SetMiddleware(mw ...middleware.Middleware) {
	b.extraMiddleware = mw
}

// compile renders SDL and parses it. Callers hold b.mu.
func (b *Builder) compile() (*CompiledSchema, error) {
	sdl := GenerateSDL(b.models, b.cfg)
	doc, report := astparser.ParseGraphqlDocumentString(sdl)
	if report.HasErrors() {
		return nil, fmt.Errorf("failed to parse generated schema: %s", report.Error())
	}
	return &CompiledSchema{
		SDL:      sdl,
		Document: &doc,
		Version:  b.version,
	}, nil
}

// Resolver returns the base field resolver for the generated root fields. Nested
// fields resolve out of parent objects; unknown root fields are an error.
func (b *Builder) Resolver() middleware.Resolver {
	return func(root any, info *middleware.ResolveInfo, args map[string]any) (any, error) {
		// Nested field: pull the value off the parent object.
		if info.Path != nil && info.Path.Prev != nil {
			if parent, ok := root.(map[string]any); ok {
				return parent[info.FieldName], nil
			}
			return nil, nil
		}

		handler, ok := b.handlers[info.FieldName]
		if !ok {
			return nil, fmt.Errorf("cannot resolve field %q on schema %q", info.FieldName, b.schemaName)
		}
		return handler(args)
	}
}

// buildHandlers precomputes the root-field dispatch table from the model scope and
// the generator settings.
func (b *Builder) buildHandlers() map[string]fieldHandler {
	handlers := map[string]fieldHandler{
		"_empty": func(map[string]any) (any, error) { return nil, nil },
	}

	for _, sm := range b.models {
		model := sm.Model

		if b.cfg.Query.EnableGetQueries {
			handlers[lowerFirst(model.Name)] = b.getHandler(model)
		}
		if b.cfg.Query.EnableListQueries {
			handlers["all"+pluralize(model.Name)] = b.listHandler(model)
		}
		if b.cfg.Mutation.EnableCreate {
			handlers["create"+model.Name] = b.createHandler(model)
		}
		if b.cfg.Mutation.EnableUpdate {
			handlers["update"+model.Name] = b.updateHandler(model)
		}
		if b.cfg.Mutation.EnableDelete {
			handlers["delete"+model.Name] = b.deleteHandler(model)
		}
	}
	return handlers
}

func (b *Builder) getHandler(model catalog.Model) fieldHandler {
	return func(args map[string]any) (any, error) {
		id, err := stringArg(args, "id")
		if err != nil {
			return nil, err
		}
		record, ok := b.store.Get(model.Name, id)
		if !ok {
			return nil, nil
		}
		return record, nil
	}
}

func (b *Builder) listHandler(model catalog.Model) fieldHandler {
	return func(args map[string]any) (any, error) {
		opts := listOptions{
			Limit:  b.cfg.Query.DefaultPageSize,
			SortBy: "",
		}
		if !b.cfg.Query.EnablePagination {
			opts.Limit = 0
		}
		if v, ok := args["limit"]; ok {
			opts.Limit = clampLimit(toInt(v), b.cfg.Query.MaxPageSize)
		}
		if v, ok := args["offset"]; ok {
			opts.Offset = toInt(v)
		}
		if v, ok := args["orderBy"].(string); ok && b.cfg.Query.EnableOrdering {
			opts.SortBy = v
		}
		if v, ok := args["filter"].(map[string]any); ok && b.cfg.Filtering.EnableFiltering {
			opts.Filter = v
		}
		return b.store.List(model.Name, opts), nil
	}
}

func (b *Builder) createHandler(model catalog.Model) fieldHandler {
	return func(args map[string]any) (any, error) {
		input, ok := args["input"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("input argument required")
		}
		return b.store.Create(model.Name, input), nil
	}
}

func (b *Builder) updateHandler(model catalog.Model) fieldHandler {
	return func(args map[string]any) (any, error) {
		id, err := stringArg(args, "id")
		if err != nil {
			return nil, err
		}
		input, ok := args["input"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("input argument required")
		}
		record, ok := b.store.Update(model.Name, id, input)
		if !ok {
			return nil, fmt.Errorf("%s %q not found", model.Name, id)
		}
		return record, nil
	}
}

func (b *Builder) deleteHandler(model catalog.Model) fieldHandler {
	return func(args map[string]any) (any, error) {
		id, err := stringArg(args, "id")
		if err != nil {
			return nil, err
		}
		return b.store.Delete(model.Name, id), nil
	}
}

func stringArg(args map[string]any, name string) (string, error) {
	switch v := args[name].(type) {
	case string:
		return v, nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	default:
		return "", fmt.Errorf("%s argument required", name)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func clampLimit(limit, max int) int {
	if max > 0 && limit > max {
		return max
	}
	return limit
}
