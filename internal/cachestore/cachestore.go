// Package cachestore provides the shared cache abstraction used by persisted
// queries and rate limiting: a Redis backend for multi-process deployments and an
// in-process fallback for single-worker setups and tests.
package cachestore

import (
	"context"
	"time"
)

// Cache is the minimal byte-oriented cache contract.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
}

// Config holds common configuration for cache backends.
type Config struct {
	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration
	// Prefix is prepended to every key.
	Prefix string
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "graphmux:",
	}
}

// ErrCacheMiss is returned when a key is not found.
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss.
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
