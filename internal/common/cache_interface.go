package common

import (
	"context"
	"time"
)

// CacheInterface defines the contract for cache implementations. Values are
// opaque bytes so the in-memory and Redis backends behave the same.
type CacheInterface interface {
	// Set stores a value in cache with the given key and duration
	Set(ctx context.Context, key string, value []byte, duration time.Duration)

	// Get retrieves a value from cache by key
	// Returns the value and true if found, nil and false otherwise
	Get(ctx context.Context, key string) ([]byte, bool)

	// Delete removes a value from cache by key
	Delete(ctx context.Context, key string)

	// GetOrSet retrieves a value from cache, or loads it using the loader function if not found
	GetOrSet(ctx context.Context, key string, duration time.Duration, loader func() ([]byte, error)) ([]byte, error)

	// Close closes any underlying connections (for Redis, etc.)
	Close() error
}
