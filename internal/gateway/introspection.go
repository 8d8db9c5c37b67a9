package gateway

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// introspectionCache memoizes __schema introspection results keyed by schema name
// and builder version, so GraphiQL's constant polling never recomputes the type
// listing for an unchanged schema.
type introspectionCache struct {
	cache *ristretto.Cache[string, map[string]any]
}

func newIntrospectionCache() (*introspectionCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, map[string]any]{
		NumCounters: 1e4,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create introspection cache: %w", err)
	}
	return &introspectionCache{cache: cache}, nil
}

func introspectionKey(schemaName string, version int64) string {
	return fmt.Sprintf("%s:%d", schemaName, version)
}

func (c *introspectionCache) get(schemaName string, version int64) (map[string]any, bool) {
	return c.cache.Get(introspectionKey(schemaName, version))
}

func (c *introspectionCache) set(schemaName string, version int64, data map[string]any) {
	c.cache.Set(introspectionKey(schemaName, version), data, 1)
	c.cache.Wait()
}

func (c *introspectionCache) close() {
	c.cache.Close()
}
