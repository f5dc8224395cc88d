package schemacache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smileid/pkg/platform/sentinel"
	"smileid/pkg/validation"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	cache := NewInMemoryCache(time.Minute)
	cache.now = func() time.Time { return now }

	t.Run("miss", func(t *testing.T) {
		_, err := cache.Get(ctx, "test")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("hit returns an independent copy", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "test", validation.DefaultSchema()))
		got, err := cache.Get(ctx, "test")
		require.NoError(t, err)
		got["NG"]["BVN"] = nil

		again, err := cache.Get(ctx, "test")
		require.NoError(t, err)
		assert.NotEmpty(t, again["NG"]["BVN"])
	})

	t.Run("expired entries are reported", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, err := cache.Get(ctx, "test")
		assert.ErrorIs(t, err, sentinel.ErrExpired)
	})

	t.Run("nil schema is ignored", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "empty", nil))
		_, err := cache.Get(ctx, "empty")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
