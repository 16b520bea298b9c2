//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/ratelimit/store"
	"warden/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisBucketStore
	ctx   context.Context
}

func TestRedisBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedisBucketStore(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisBucketStoreSuite) TestLimitIsEnforced() {
	for i := range 3 {
		result, err := s.store.Allow(s.ctx, "rl:alice", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed, "request %d", i+1)
		s.Equal(2-i, result.Remaining)
	}

	result, err := s.store.Allow(s.ctx, "rl:alice", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.GreaterOrEqual(result.RetryAfter, 1)

	ttl, err := s.redis.Client.PTTL(s.ctx, "rl:alice").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}

func (s *RedisBucketStoreSuite) TestWindowExpires() {
	_, err := s.store.Allow(s.ctx, "rl:bob", 1, 200*time.Millisecond)
	s.Require().NoError(err)

	result, err := s.store.Allow(s.ctx, "rl:bob", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.False(result.Allowed)

	time.Sleep(250 * time.Millisecond)
	result, err = s.store.Allow(s.ctx, "rl:bob", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestReset() {
	_, err := s.store.Allow(s.ctx, "rl:carol", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "rl:carol"))

	result, err := s.store.Allow(s.ctx, "rl:carol", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
