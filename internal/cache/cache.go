// Package cache stores small downloaded assets, such as subtitle bodies, keyed
// by their remote link. Backends are selected by name through a provider
// registry.
package cache

import "context"

// EvictCallback is called when an entry is evicted from the cache.
// The Redis provider reports evicted keys with a nil value.
type EvictCallback func(key string, value []byte)

// Cache is a bounded key-value store with LRU eviction and a TTL.
type Cache interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte)

	// Len returns the number of live entries.
	Len() int

	// Close releases backend connections.
	Close() error
}

// Logger receives errors that a backend cannot return to the caller.
type Logger interface {
	Error(msg string, err error)
}
