package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Guard serializes promotion attempts per draft so only one promote call is
// ever in flight for a given draft.
type Guard interface {
	Acquire(ctx context.Context, draftID string) (bool, error)
	Release(ctx context.Context, draftID string) error
}

// RedisGuard implements Guard with a SETNX lock. The TTL covers a crashed
// holder; a completed promotion is deduplicated through the repository, not
// the lock.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard returns a guard with a one-minute lock TTL.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client, ttl: time.Minute}
}

func lockKey(draftID string) string {
	return "promote:" + draftID
}

func (g *RedisGuard) Acquire(ctx context.Context, draftID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, lockKey(draftID), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire promotion lock for %s: %w", draftID, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, draftID string) error {
	return g.client.Del(ctx, lockKey(draftID)).Err()
}
