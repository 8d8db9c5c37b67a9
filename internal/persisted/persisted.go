// Package persisted implements automatic persisted queries: clients may send the
// SHA-256 hash of a query instead of its text once the pairing has been
// registered. Pairings live in an immutable allowlist, a TTL-bound cache store,
// or both.
package persisted

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/cachestore"
	"github.com/graphmux/graphmux/internal/config"
)

// Error codes returned in the GraphQL error envelope.
const (
	CodeNotFound     = "PERSISTED_QUERY_NOT_FOUND"
	CodeNotAllowed   = "PERSISTED_QUERY_NOT_ALLOWED"
	CodeHashMismatch = "PERSISTED_QUERY_HASH_MISMATCH"
	CodeDisabled     = "PERSISTED_QUERY_DISABLED"
)

const cacheKeyPrefix = "persisted_query:"

// Result is the outcome of resolving one request payload. Either Query holds the
// effective query text, or ErrorCode/ErrorMessage describe the refusal.
type Result struct {
	Query        string
	ErrorCode    string
	ErrorMessage string
}

// Failed reports whether resolution produced an error.
func (r Result) Failed() bool {
	return r.ErrorCode != ""
}

func errorResult(code, message string) Result {
	return Result{ErrorCode: code, ErrorMessage: message}
}

// Hash returns the lowercase hex SHA-256 digest of a query. The hash algorithm is
// always SHA-256; a configured algorithm name is read but never honored, matching
// long-standing client expectations.
func Hash(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// Resolver resolves persisted query payloads. Instances are immutable after
// construction and safe for concurrent use.
type Resolver struct {
	cfg       config.PersistedQueryConfig
	cache     cachestore.Cache
	allowlist map[string]string
	logger    zerolog.Logger
}

// NewResolver creates a resolver. The allowlist is loaded once, from the inline
// config list and the allowlist file if configured; the cache may be nil when the
// feature is disabled.
func NewResolver(cfg config.PersistedQueryConfig, cache cachestore.Cache, logger zerolog.Logger) (*Resolver, error) {
	r := &Resolver{
		cfg:       cfg,
		cache:     cache,
		allowlist: make(map[string]string),
		logger:    logger.With().Str("component", "persisted-queries").Logger(),
	}
	for _, query := range cfg.Allowlist {
		r.allowlist[Hash(query)] = query
	}
	if cfg.AllowlistFile != "" {
		if err := r.loadAllowlistFile(cfg.AllowlistFile); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// loadAllowlistFile reads a JSON allowlist: either a {hash: query} object or a
// bare list of query strings whose hashes are computed on load.
func (r *Resolver) loadAllowlistFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read allowlist file %s: %w", path, err)
	}

	var byHash map[string]string
	if err := json.Unmarshal(data, &byHash); err == nil {
		for hash, query := range byHash {
			r.allowlist[hash] = query
		}
		return nil
	}

	var queries []string
	if err := json.Unmarshal(data, &queries); err != nil {
		return fmt.Errorf("allowlist file %s is neither a hash map nor a query list: %w", path, err)
	}
	for _, query := range queries {
		r.allowlist[Hash(query)] = query
	}
	return nil
}

// AllowlistSize returns the number of allowlisted queries.
func (r *Resolver) AllowlistSize() int {
	return len(r.allowlist)
}

// ExtractHash pulls extensions.persistedQuery.sha256Hash out of a request
// payload, or "" when the payload carries no persisted query extension.
func ExtractHash(payload map[string]any) string {
	extensions, ok := payload["extensions"].(map[string]any)
	if !ok {
		return ""
	}
	pq, ok := extensions["persistedQuery"].(map[string]any)
	if !ok {
		return ""
	}
	hash, _ := pq["sha256Hash"].(string)
	return hash
}

// Resolve runs the persisted query state machine against one request payload and
// returns the effective query text or an error code.
//
// With the feature disabled, payloads carrying query text pass through unchanged;
// a hash-only payload cannot be served and fails with PERSISTED_QUERY_DISABLED.
func (r *Resolver) Resolve(ctx context.Context, payload map[string]any) Result {
	query, _ := payload["query"].(string)
	hash := ExtractHash(payload)

	if !r.cfg.Enabled {
		if hash != "" && query == "" {
			return errorResult(CodeDisabled, "persisted queries are disabled")
		}
		return Result{Query: query}
	}

	if hash == "" {
		return Result{Query: query}
	}

	if query != "" {
		return r.register(ctx, hash, query)
	}
	return r.lookup(ctx, hash)
}

// register handles the query+hash registration round trip.
func (r *Resolver) register(ctx context.Context, hash, query string) Result {
	if r.cfg.MaxQueryLength > 0 && len(query) > r.cfg.MaxQueryLength {
		return errorResult(CodeNotAllowed,
			fmt.Sprintf("query exceeds maximum length %d", r.cfg.MaxQueryLength))
	}
	if Hash(query) != hash {
		return errorResult(CodeHashMismatch, "provided sha256Hash does not match query")
	}

	if _, listed := r.allowlist[hash]; listed {
		return Result{Query: query}
	}
	if r.cfg.EnforceAllowlist {
		return errorResult(CodeNotAllowed, "query is not in the persisted query allowlist")
	}

	// An allowlist without enforcement still gates registration unless opted in;
	// the request itself succeeds either way.
	if len(r.allowlist) > 0 && !r.cfg.AllowRegistration {
		return Result{Query: query}
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKeyPrefix+hash, []byte(query), r.cfg.TTL); err != nil {
			r.logger.Warn().Err(err).Str("hash", hash).Msg("failed to cache persisted query")
		}
	}
	return Result{Query: query}
}

// lookup handles the hash-only retrieval path.
func (r *Resolver) lookup(ctx context.Context, hash string) Result {
	if query, ok := r.allowlist[hash]; ok {
		return Result{Query: query}
	}
	if r.cache != nil {
		data, err := r.cache.Get(ctx, cacheKeyPrefix+hash)
		if err == nil {
			return Result{Query: string(data)}
		}
		if !cachestore.IsCacheMiss(err) {
			r.logger.Warn().Err(err).Str("hash", hash).Msg("persisted query cache read failed")
		}
	}
	if len(r.allowlist) > 0 {
		return errorResult(CodeNotAllowed, "query hash is not in the persisted query allowlist")
	}
	return errorResult(CodeNotFound, "persisted query not found")
}
