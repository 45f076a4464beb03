package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonflow/models"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when a draft is missing or has expired.
var ErrNotFound = errors.New("draft not found or expired")

// Store holds pending drafts. Drafts are not deleted explicitly by the
// client; they either get consumed by promotion or expire with the TTL.
type Store interface {
	Save(ctx context.Context, d *models.Draft, ttl time.Duration) error
	Get(ctx context.Context, draftID string) (*models.Draft, error)
	Delete(ctx context.Context, draftID string) error
}

// RedisStore keeps drafts as JSON blobs with a TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func draftKey(draftID string) string {
	return "draft:" + draftID
}

func (s *RedisStore) Save(ctx context.Context, d *models.Draft, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.DraftID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, draftID string) (*models.Draft, error) {
	data, err := s.client.Get(ctx, draftKey(draftID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch draft %s: %w", draftID, err)
	}
	var d models.Draft
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("failed to parse draft %s: %w", draftID, err)
	}
	return &d, nil
}

func (s *RedisStore) Delete(ctx context.Context, draftID string) error {
	return s.client.Del(ctx, draftKey(draftID)).Err()
}
