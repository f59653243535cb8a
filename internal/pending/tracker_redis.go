package pending

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

const keyPrefix = "attest:pending:"

// RedisTracker is a Tracker backed by Redis, for deployments running more
// than one gateway instance. Markers carry a TTL so a crashed instance
// releases its credentials without intervention.
type RedisTracker struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis creates a Redis-backed tracker.
func NewRedis(client redis.Cmdable, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisTracker{client: client, ttl: ttl}
}

func (t *RedisTracker) Begin(ctx context.Context, credentialID, txID string) error {
	ok, err := t.client.SetNX(ctx, keyPrefix+credentialID, txID, t.ttl).Result()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "pending tracker unavailable")
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (t *RedisTracker) End(ctx context.Context, credentialID string) error {
	if err := t.client.Del(ctx, keyPrefix+credentialID).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "pending tracker unavailable")
	}
	return nil
}

func (t *RedisTracker) InFlight(ctx context.Context, credentialID string) (string, error) {
	txID, err := t.client.Get(ctx, keyPrefix+credentialID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "pending tracker unavailable")
	}
	return txID, nil
}

var _ Tracker = (*RedisTracker)(nil)
