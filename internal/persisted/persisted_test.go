package persisted

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmux/graphmux/internal/cachestore"
	"github.com/graphmux/graphmux/internal/config"
)

// Test Plan:
// 1. Test registration round trip: query+hash then hash-only resolves the text
// 2. Test hash mismatch is refused with PERSISTED_QUERY_HASH_MISMATCH
// 3. Test unknown hash with no allowlist fails NOT_FOUND, not NOT_ALLOWED
// 4. Test unknown hash with an allowlist present fails NOT_ALLOWED
// 5. Test enforced allowlist refuses unlisted registration
// 6. Test max query length produces NOT_ALLOWED
// 7. Test disabled feature passes query text through and refuses hash-only
// 8. Test allowlist gating of cache registration without enforcement

func newTestResolver(t *testing.T, cfg config.PersistedQueryConfig) (*Resolver, cachestore.Cache) {
	t.Helper()
	cache := cachestore.NewMemoryCache(cachestore.Config{DefaultTTL: time.Minute})
	r, err := NewResolver(cfg, cache, zerolog.Nop())
	require.NoError(t, err)
	return r, cache
}

func payload(query, hash string) map[string]any {
	p := map[string]any{}
	if query != "" {
		p["query"] = query
	}
	if hash != "" {
		p["extensions"] = map[string]any{
			"persistedQuery": map[string]any{"sha256Hash": hash},
		}
	}
	return p
}

// Test: registering query+hash once lets a later hash-only request resolve
func TestResolve_RoundTrip(t *testing.T) {
	r, _ := newTestResolver(t, config.PersistedQueryConfig{Enabled: true})
	ctx := context.Background()

	query := "{ ping }"
	hash := Hash(query)

	result := r.Resolve(ctx, payload(query, hash))
	require.False(t, result.Failed(), result.ErrorMessage)
	assert.Equal(t, query, result.Query)

	result = r.Resolve(ctx, payload("", hash))
	require.False(t, result.Failed(), result.ErrorMessage)
	assert.Equal(t, query, result.Query)
}

// Test: a wrong hash for given query text is refused
func TestResolve_HashMismatch(t *testing.T) {
	r, _ := newTestResolver(t, config.PersistedQueryConfig{Enabled: true})

	result := r.Resolve(context.Background(), payload("{ ping }", Hash("{ pong }")))
	require.True(t, result.Failed())
	assert.Equal(t, CodeHashMismatch, result.ErrorCode)
}

// Test: a never-seen hash without any allowlist is NOT_FOUND
func TestResolve_UnknownHashNotFound(t *testing.T) {
	r, _ := newTestResolver(t, config.PersistedQueryConfig{Enabled: true})

	result := r.Resolve(context.Background(), payload("", Hash("{ never }")))
	require.True(t, result.Failed())
	assert.Equal(t, CodeNotFound, result.ErrorCode)
}

// Test: a never-seen hash with an allowlist configured is NOT_ALLOWED
func TestResolve_UnknownHashWithAllowlist(t *testing.T) {
	r, _ := newTestResolver(t, config.PersistedQueryConfig{
		Enabled:   true,
		Allowlist: []string{"{ listed }"},
	})

	result := r.Resolve(context.Background(), payload("", Hash("{ never }")))
	require.True(t, result.Failed())
	assert.Equal(t, CodeNotAllowed, result.ErrorCode)

	result = r.Resolve(context.Background(), payload("", Hash("{ listed }")))
	require.False(t, result.Failed())
	assert.Equal(t, "{ listed }", result.Query)
}

// Test: enforced allowlist refuses registration of unlisted queries
func TestResolve_EnforcedAllowlist(t *testing.T) {
	r, _ := newTestResolver(t, config.PersistedQueryConfig{
		Enabled:          true,
		EnforceAllowlist: true,
		Allowlist:        []string{"{ listed }"},
	})
	ctx := context.Background()

	result := r.Resolve(ctx, payload("{ rogue }", Hash("{ rogue }")))
	require.True(t, result.Failed())
	assert.Equal(t, CodeNotAllowed, result.ErrorCode)

	result = r.Resolve(ctx, payload("{ listed }", Hash("{ listed }")))
	require.False(t, result.Failed())
}

// Test: a query over the configured max length is refused
func TestResolve_MaxQueryLength(t *testing.T) {
	r, _ := newTestResolver(t, config.PersistedQueryConfig{
		Enabled:        true,
		MaxQueryLength: 32,
	})

	long := "{ " + strings.Repeat("a", 64) + " }"
	result := r.Resolve(context.Background(), payload(long, Hash(long)))
	require.True(t, result.Failed())
	assert.Equal(t, CodeNotAllowed, result.ErrorCode)
}

// Test: with the feature disabled, text passes through and hash-only is refused
func TestResolve_Disabled(t *testing.T) {
	r, _ := newTestResolver(t, config.PersistedQueryConfig{Enabled: false})
	ctx := context.Background()

	result := r.Resolve(ctx, payload("{ ping }", ""))
	require.False(t, result.Failed())
	assert.Equal(t, "{ ping }", result.Query)

	result = r.Resolve(ctx, payload("", Hash("{ ping }")))
	require.True(t, result.Failed())
	assert.Equal(t, CodeDisabled, result.ErrorCode)
}

// Test: an unenforced allowlist blocks caching unless registration is allowed
func TestResolve_AllowlistGatesRegistration(t *testing.T) {
	ctx := context.Background()
	query := "{ unlisted }"
	hash := Hash(query)

	r, _ := newTestResolver(t, config.PersistedQueryConfig{
		Enabled:   true,
		Allowlist: []string{"{ listed }"},
	})
	result := r.Resolve(ctx, payload(query, hash))
	require.False(t, result.Failed(), "registration request itself must succeed")

	result = r.Resolve(ctx, payload("", hash))
	require.True(t, result.Failed(), "unregistered hash must not resolve later")

	r, _ = newTestResolver(t, config.PersistedQueryConfig{
		Enabled:           true,
		Allowlist:         []string{"{ listed }"},
		AllowRegistration: true,
	})
	result = r.Resolve(ctx, payload(query, hash))
	require.False(t, result.Failed())
	result = r.Resolve(ctx, payload("", hash))
	require.False(t, result.Failed())
	assert.Equal(t, query, result.Query)
}

// Test: the hash extension is extracted only from a well-formed payload
func TestExtractHash(t *testing.T) {
	assert.Equal(t, "abc", ExtractHash(map[string]any{
		"extensions": map[string]any{
			"persistedQuery": map[string]any{"sha256Hash": "abc"},
		},
	}))
	assert.Empty(t, ExtractHash(map[string]any{"query": "{ ping }"}))
	assert.Empty(t, ExtractHash(map[string]any{"extensions": map[string]any{}}))
	assert.Empty(t, ExtractHash(map[string]any{"extensions": "nope"}))
}
