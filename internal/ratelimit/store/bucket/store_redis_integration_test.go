//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cubby/internal/ratelimit/store/bucket"
	"cubby/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = bucket.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAllowWithinLimit() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := s.store.Allow(ctx, "rl:read:10.0.0.1", 5, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed, "request %d should be allowed", i+1)
		s.Equal(5, result.Limit)
	}
}

func (s *RedisStoreSuite) TestDeniesOverLimit() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := s.store.Allow(ctx, "rl:auth:10.0.0.2", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
	}

	result, err := s.store.Allow(ctx, "rl:auth:10.0.0.2", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.Positive(result.RetryAfter)
}

func (s *RedisStoreSuite) TestKeysAreIndependent() {
	ctx := context.Background()

	result, err := s.store.Allow(ctx, "rl:auth:10.0.0.3", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = s.store.Allow(ctx, "rl:auth:10.0.0.3", 1, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)

	result, err = s.store.Allow(ctx, "rl:auth:10.0.0.4", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed, "a different key has its own budget")
}

func (s *RedisStoreSuite) TestWindowExpires() {
	// Justification: the fixed window must roll over, otherwise a client
	// denied once is denied forever. A short window keeps the test fast.
	ctx := context.Background()
	window := 500 * time.Millisecond

	result, err := s.store.Allow(ctx, "rl:auth:10.0.0.5", 1, window)
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = s.store.Allow(ctx, "rl:auth:10.0.0.5", 1, window)
	s.Require().NoError(err)
	s.False(result.Allowed)

	time.Sleep(window + 100*time.Millisecond)

	result, err = s.store.Allow(ctx, "rl:auth:10.0.0.5", 1, window)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.store.Allow(ctx, "quota:child:abc", 2, time.Hour)
		s.Require().NoError(err)
	}
	result, err := s.store.Allow(ctx, "quota:child:abc", 2, time.Hour)
	s.Require().NoError(err)
	s.False(result.Allowed)

	s.Require().NoError(s.store.Reset(ctx, "quota:child:abc"))

	result, err = s.store.Allow(ctx, "quota:child:abc", 2, time.Hour)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
