package cachestore

import (
	"context"
	"sync"
	"time"
)

// MemoryCache implements Cache on an in-process map with TTL support. It is NOT
// multi-process-safe: entries written by one worker are invisible to others. This
// is a known limitation of the fallback, not something to paper over.
type MemoryCache struct {
	mu     sync.RWMutex
	data   map[string]memoryItem
	config Config
}

type memoryItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(config Config) *MemoryCache {
	if config.DefaultTTL == 0 && config.Prefix == "" {
		config = DefaultConfig()
	}
	return &MemoryCache{
		data:   make(map[string]memoryItem),
		config: config,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	fullKey := m.config.Prefix + key

	m.mu.RLock()
	item, ok := m.data[fullKey]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		m.mu.Lock()
		delete(m.data, fullKey)
		m.mu.Unlock()
		return nil, ErrCacheMiss{Key: key}
	}
	return item.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	var expiration time.Time
	if ttl > 0 {
		expiration = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.data[m.config.Prefix+key] = memoryItem{value: value, expiration: expiration}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if err != nil {
		if IsCacheMiss(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *MemoryCache) Clear(_ context.Context) error {
	m.mu.Lock()
	m.data = make(map[string]memoryItem)
	m.mu.Unlock()
	return nil
}
