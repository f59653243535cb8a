//go:build integration

package pending_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/internal/pending"
	"attest/pkg/platform/sentinel"
	"attest/pkg/testutil/containers"
)

type RedisTrackerSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	tracker *pending.RedisTracker
}

func TestRedisTrackerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTrackerSuite))
}

func (s *RedisTrackerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.tracker = pending.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisTrackerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTrackerSuite) TestBeginSerializesPerCredential() {
	ctx := context.Background()

	s.Require().NoError(s.tracker.Begin(ctx, "101", "TX-A"))

	// Second Begin on the same credential conflicts until the first ends.
	err := s.tracker.Begin(ctx, "101", "TX-B")
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// A different credential is unaffected.
	s.Require().NoError(s.tracker.Begin(ctx, "102", "TX-C"))

	txID, err := s.tracker.InFlight(ctx, "101")
	s.Require().NoError(err)
	s.Equal("TX-A", txID)

	s.Require().NoError(s.tracker.End(ctx, "101"))
	s.Require().NoError(s.tracker.Begin(ctx, "101", "TX-B"))
}

func (s *RedisTrackerSuite) TestEndIsIdempotent() {
	ctx := context.Background()

	s.Require().NoError(s.tracker.End(ctx, "missing"))

	txID, err := s.tracker.InFlight(ctx, "missing")
	s.Require().NoError(err)
	s.Empty(txID)
}

func (s *RedisTrackerSuite) TestMarkerExpires() {
	ctx := context.Background()
	short := pending.NewRedis(s.redis.Client, 100*time.Millisecond)

	s.Require().NoError(short.Begin(ctx, "301", "TX-A"))
	s.Require().ErrorIs(short.Begin(ctx, "301", "TX-B"), sentinel.ErrConflict)

	time.Sleep(200 * time.Millisecond)

	s.Require().NoError(short.Begin(ctx, "301", "TX-B"))
}
