//go:build integration

package schemacache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"smileid/pkg/platform/sentinel"
	"smileid/pkg/testutil/containers"
	"smileid/pkg/validation"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = NewRedisCache(s.redis.Client, time.Second)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "live", validation.DefaultSchema()))

	got, err := s.cache.Get(ctx, "live")
	s.Require().NoError(err)
	s.Equal(validation.DefaultSchema(), got)
}

func (s *RedisCacheSuite) TestMiss() {
	_, err := s.cache.Get(context.Background(), "absent")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "live", validation.DefaultSchema()))

	s.Eventually(func() bool {
		_, err := s.cache.Get(ctx, "live")
		return err != nil
	}, 5*time.Second, 100*time.Millisecond)
}
