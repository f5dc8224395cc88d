package schemacache

import (
	"context"
	"sync"
	"time"

	"smileid/pkg/platform/sentinel"
	"smileid/pkg/validation"
)

type cachedSchema struct {
	schema   validation.Schema
	storedAt time.Time
}

// InMemoryCache keeps schemas in process with TTL expiration.
type InMemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]cachedSchema
	cacheTTL time.Duration
	now      func() time.Time
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
func NewInMemoryCache(cacheTTL time.Duration) *InMemoryCache {
	return &InMemoryCache{
		entries:  make(map[string]cachedSchema),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Set stores a schema under key. A nil schema is a no-op.
func (c *InMemoryCache) Set(_ context.Context, key string, schema validation.Schema) error {
	if schema == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedSchema{schema: clone(schema), storedAt: c.now()}
	return nil
}

// Get returns a copy of the schema stored under key.
func (c *InMemoryCache) Get(_ context.Context, key string) (validation.Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.entries[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.now().Sub(cached.storedAt) >= c.cacheTTL {
		return nil, sentinel.ErrExpired
	}
	return clone(cached.schema), nil
}

func clone(s validation.Schema) validation.Schema {
	out := make(validation.Schema, len(s))
	for country, types := range s {
		inner := make(map[string][]string, len(types))
		for idType, fields := range types {
			inner[idType] = append([]string(nil), fields...)
		}
		out[country] = inner
	}
	return out
}
