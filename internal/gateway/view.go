// Package gateway is the HTTP surface: one view dispatching GraphQL requests to
// any registered schema by name, plus the schema listing endpoint and the
// GraphiQL explorer page.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/audit"
	"github.com/graphmux/graphmux/internal/auth"
	"github.com/graphmux/graphmux/internal/config"
	"github.com/graphmux/graphmux/internal/middleware"
	"github.com/graphmux/graphmux/internal/persisted"
	"github.com/graphmux/graphmux/internal/registry"
	"github.com/graphmux/graphmux/internal/schemagen"
	"github.com/graphmux/graphmux/internal/settings"
)

// testSchemaName is the conventionally named test-only endpoint, blocked in
// production unless explicitly enabled.
const testSchemaName = "graphql-test"

// defaultMaxBodyBytes caps request bodies.
const defaultMaxBodyBytes = 10 << 20

// Deps are the collaborators the view needs. All are shared and thread-safe.
type Deps struct {
	Config    *config.Config
	Registry  *registry.Registry
	Settings  *settings.Resolver
	Persisted *persisted.Resolver
	Auth      *auth.Service
	Factories *middleware.Factories
	Plugins   *middleware.PluginRegistry
	Audit     audit.Logger
	Logger    zerolog.Logger
}

// View dispatches requests for every registered schema.
type View struct {
	deps          Deps
	executor      *executor
	introspection *introspectionCache
	maxBodyBytes  int64
	logger        zerolog.Logger
}

// New creates the multi-schema view.
func New(deps Deps) (*View, error) {
	cache, err := newIntrospectionCache()
	if err != nil {
		return nil, err
	}
	return &View{
		deps:          deps,
		executor:      newExecutor(deps.Logger),
		introspection: cache,
		maxBodyBytes:  defaultMaxBodyBytes,
		logger:        deps.Logger.With().Str("component", "gateway").Logger(),
	}, nil
}

// Close releases the introspection cache.
func (v *View) Close() {
	v.introspection.close()
}

// Routes returns the chi router for the GraphQL surface.
func (v *View) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(v.recoverer)
	r.Get("/schemas/", v.handleSchemaList)
	r.Get("/schemas", v.handleSchemaList)
	r.HandleFunc("/graphql/{schema}", v.handleGraphQL)
	r.HandleFunc("/graphql/{schema}/", v.handleGraphQL)
	return r
}

// recoverer converts a panic anywhere below the router into the standard error
// envelope. The panic value is only echoed to the client in debug mode.
func (v *View) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			v.logger.Error().
				Interface("panic", rec).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("panic while serving request")
			message := "internal server error"
			if v.deps.Config.Debug {
				message = fmt.Sprintf("internal server error: %v", rec)
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, message)
		}()
		next.ServeHTTP(w, r)
	})
}

// handleGraphQL is the dispatch state machine for one request.
func (v *View) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	schemaName := chi.URLParam(r, "schema")

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed,
			"only GET and POST are supported")
		return
	}

	// Authentication is best effort here; enforcement happens in the access
	// guard middleware and the graphiql gates below.
	ctx := r.Context()
	user := v.authenticate(r)
	if user != nil {
		ctx = auth.WithUser(ctx, user)
	}
	r = r.WithContext(ctx)

	// Test endpoint gate.
	if strings.EqualFold(schemaName, testSchemaName) && !v.deps.Config.TestEndpointAllowed() {
		writeError(w, http.StatusNotFound, codeSchemaNotFound,
			"schema \""+schemaName+"\" not found")
		return
	}

	// Body parse plus persisted query resolution, before any registry work.
	r.Body = http.MaxBytesReader(w, r.Body, v.maxBodyBytes)
	body, err := parseBody(r)
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				"request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	for _, payload := range body.payloads {
		result := v.deps.Persisted.Resolve(ctx, payload)
		if result.Failed() {
			writeJSON(w, http.StatusOK, &graphqlResponse{
				Errors: []graphqlError{codedError(result.ErrorCode, result.ErrorMessage)},
			}, false)
			return
		}
		payload["query"] = result.Query
	}

	// Registry lookup. Discovery ran at startup; a nil registry is a wiring
	// fault surfaced as unavailability, never a panic.
	if v.deps.Registry == nil {
		writeError(w, http.StatusServiceUnavailable, codeRegistryUnavailable,
			"schema registry unavailable")
		return
	}
	info := v.deps.Registry.Get(schemaName)
	if info == nil {
		writeError(w, http.StatusNotFound, codeSchemaNotFound,
			"schema \""+schemaName+"\" not found")
		return
	}
	if !info.Enabled {
		writeError(w, http.StatusForbidden, codeSchemaDisabled,
			"schema \""+schemaName+"\" is disabled")
		return
	}

	// GraphiQL host and superuser gates. A host denial is indistinguishable
	// from the schema not existing.
	if strings.EqualFold(schemaName, settings.GraphiQLSchemaName) {
		if !v.graphiqlHostAllowed(r) {
			writeError(w, http.StatusNotFound, codeSchemaNotFound,
				"schema \""+schemaName+"\" not found")
			return
		}
		if v.deps.Config.GraphiQLGate.SuperuserOnly && !user.IsSuperuser() {
			writeError(w, http.StatusForbidden, codeSuperuserRequired,
				"superuser required")
			return
		}
	}

	ss := settings.SchemaSettingsFromSchema(v.deps.Settings, schemaName)

	// GET with no query renders the explorer or rejects the method.
	if r.Method == http.MethodGet && r.URL.Query().Get("query") == "" {
		if !ss.EnableGraphiQL {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed,
				"GET requests require a query parameter")
			return
		}
		if ss.AuthenticationRequired && user == nil {
			// Historical contract: this gate answers 200 with an error body,
			// not 401. Clients depend on it.
			writeError(w, http.StatusOK, codeAuthenticationRequired,
				"authentication required")
			return
		}
		v.serveGraphiQL(w, schemaName)
		return
	}

	builder, err := v.deps.Registry.SchemaBuilder(schemaName)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeRegistryUnavailable, err.Error())
		return
	}

	schema, err := v.schemaInstance(schemaName, builder)
	if err != nil {
		v.logger.Error().Err(err).Str("schema", schemaName).Msg("schema compilation failed")
		writeError(w, http.StatusInternalServerError, codeInternalError,
			"failed to compile schema")
		return
	}

	stack := make([]middleware.Middleware, 0, len(builder.Middleware())+13)
	stack = append(stack, builder.Middleware()...)
	stack = append(stack, middleware.Stack(schemaName, middleware.StackDeps{
		Settings:  v.deps.Settings,
		Logger:    v.deps.Logger,
		Audit:     v.deps.Audit,
		Factories: v.deps.Factories,
		Plugins:   v.deps.Plugins,
	})...)
	resolver := middleware.ChainResolver(stack, v.baseResolver(schemaName, builder))

	clientKey := clientAddress(r)
	if user != nil {
		clientKey = user.ID
	}

	// Batch handling: an array dispatches as batch only when the schema allows
	// it; a single object under an enabled batch flag still answers non-batch.
	if body.isBatch {
		if !ss.EnableBatch {
			writeError(w, http.StatusBadRequest, codeBadRequest,
				"batch requests are not supported for this schema")
			return
		}
		if ss.MaxBatchSize > 0 && len(body.payloads) > ss.MaxBatchSize {
			writeError(w, http.StatusBadRequest, codeBadRequest,
				"batch size exceeds the configured maximum")
			return
		}
		responses := make([]*graphqlResponse, 0, len(body.payloads))
		for _, payload := range body.payloads {
			responses = append(responses, v.executeOne(ctx, schemaName, schema, resolver, payload, clientKey))
		}
		writeJSON(w, http.StatusOK, responses, ss.PrettyPrint)
		return
	}

	response := v.executeOne(ctx, schemaName, schema, resolver, body.payloads[0], clientKey)
	writeJSON(w, http.StatusOK, response, ss.PrettyPrint)
}

// executeOne runs a single payload through the executor.
func (v *View) executeOne(ctx context.Context, schemaName string, schema *schemagen.CompiledSchema, resolver middleware.Resolver, payload map[string]any, clientKey string) *graphqlResponse {
	query, _ := payload["query"].(string)
	operationName, _ := payload["operationName"].(string)
	variables, _ := payload["variables"].(map[string]any)

	return v.executor.execute(ctx, executionInput{
		SchemaName:    schemaName,
		Schema:        schema,
		Resolver:      resolver,
		Query:         query,
		OperationName: operationName,
		Variables:     variables,
		ClientKey:     clientKey,
	})
}

// schemaInstance resolves the compiled schema: debug mode always rebuilds so
// local edits show up immediately, otherwise the registry's version-checked
// instance cache serves the hot path.
func (v *View) schemaInstance(schemaName string, builder *schemagen.Builder) (*schemagen.CompiledSchema, error) {
	if v.deps.Config.Debug {
		return builder.RebuildSchema()
	}
	return v.deps.Registry.SchemaInstance(schemaName)
}

// baseResolver wraps the builder's resolver with root-level introspection
// handling. Introspection results are cached per schema name and builder
// version.
func (v *View) baseResolver(schemaName string, builder *schemagen.Builder) middleware.Resolver {
	schemaResolver := builder.Resolver()
	return func(root any, info *middleware.ResolveInfo, args map[string]any) (any, error) {
		if !info.IsRootField() || !info.IsIntrospectionField() {
			return schemaResolver(root, info, args)
		}

		switch info.FieldName {
		case "__schema":
			version := builder.SchemaVersion()
			if data, ok := v.introspection.get(schemaName, version); ok {
				return data, nil
			}
			data := builder.IntrospectionData()
			v.introspection.set(schemaName, version, data)
			return data, nil
		case "__type":
			name, _ := args["name"].(string)
			if name == "" {
				return nil, nil
			}
			return builder.TypeByName(name), nil
		case "__typename":
			return "Query", nil
		default:
			return nil, nil
		}
	}
}

// handleSchemaList serves GET /schemas/: every registered schema's summary,
// omitting any graphiql schema the requester's host or role gate would refuse.
func (v *View) handleSchemaList(w http.ResponseWriter, r *http.Request) {
	user := v.authenticate(r)

	type schemaSummary struct {
		Name            string `json:"name"`
		Description     string `json:"description"`
		Version         string `json:"version"`
		Enabled         bool   `json:"enabled"`
		GraphiQLEnabled bool   `json:"graphiql_enabled"`
		AuthRequired    bool   `json:"authentication_required"`
	}

	summaries := make([]schemaSummary, 0)
	for _, info := range v.deps.Registry.List(false) {
		if strings.EqualFold(info.Name, settings.GraphiQLSchemaName) {
			if !v.graphiqlHostAllowed(r) {
				continue
			}
			if v.deps.Config.GraphiQLGate.SuperuserOnly && !user.IsSuperuser() {
				continue
			}
		}
		ss := settings.SchemaSettingsFromSchema(v.deps.Settings, info.Name)
		summaries = append(summaries, schemaSummary{
			Name:            info.Name,
			Description:     info.Description,
			Version:         info.Version,
			Enabled:         info.Enabled,
			GraphiQLEnabled: ss.EnableGraphiQL,
			AuthRequired:    ss.AuthenticationRequired,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": summaries}, false)
}

// authenticate resolves the bearer token on the request, or nil.
func (v *View) authenticate(r *http.Request) *auth.User {
	if v.deps.Auth == nil {
		return nil
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil
	}
	user, err := v.deps.Auth.ValidateToken(token)
	if err != nil {
		v.logger.Debug().Err(err).Msg("bearer token rejected")
		return nil
	}
	return user
}

// graphiqlHostAllowed checks the requester against the configured allowed-host
// list. An empty list allows everyone.
func (v *View) graphiqlHostAllowed(r *http.Request) bool {
	allowed := v.deps.Config.GraphiQLGate.AllowedHosts
	if len(allowed) == 0 {
		return true
	}
	host := clientAddress(r)
	requestHost := r.Host
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	for _, entry := range allowed {
		if entry == host || strings.EqualFold(entry, requestHost) {
			return true
		}
	}
	return false
}

// clientAddress returns the remote IP without the port.
func clientAddress(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func isBodyTooLarge(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "request body too large") ||
		strings.Contains(err.Error(), "http: request body too large")
}
