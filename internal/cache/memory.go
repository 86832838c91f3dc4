package cache

import (
	"bytes"
	"context"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", newMemoryCache)
}

// memoryCache is a process-local LRU whose entries also expire after the TTL.
// Values are copied on write so callers may reuse their buffers.
type memoryCache struct {
	lru *expirable.LRU[string, []byte]
}

func newMemoryCache(cfg ProviderConfig) (Cache, error) {
	var onEvict expirable.EvictCallback[string, []byte]
	if cfg.OnEvict != nil {
		onEvict = expirable.EvictCallback[string, []byte](cfg.OnEvict)
	}
	return &memoryCache{lru: expirable.NewLRU(cfg.Size, onEvict, cfg.TTL)}, nil
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte) {
	m.lru.Add(key, bytes.Clone(value))
}

func (m *memoryCache) Len() int { return m.lru.Len() }

func (m *memoryCache) Close() error { return nil }
