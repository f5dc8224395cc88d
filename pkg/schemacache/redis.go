package schemacache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"smileid/pkg/platform/sentinel"
	"smileid/pkg/validation"
)

const keyPrefix = "smileid:schema:"

// RedisCache shares schema snapshots between processes through Redis.
// Expiry is delegated to the Redis TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache wraps a Redis client.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Set stores a schema under key with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, schema validation.Schema) error {
	if schema == nil {
		return nil
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("store schema: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Get loads the schema stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) (validation.Schema, error) {
	payload, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load schema: %w: %w", sentinel.ErrUnavailable, err)
	}
	var schema validation.Schema
	if err := json.Unmarshal(payload, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return schema, nil
}
