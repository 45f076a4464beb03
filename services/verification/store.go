package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonflow/models"

	"github.com/go-redis/redis/v8"
)

// ErrRequestNotFound is returned when a verification request is missing or
// has expired server-side.
var ErrRequestNotFound = errors.New("verification request not found or expired")

// RequestStore holds in-flight verification requests. Requests expire with a
// TTL, which doubles as the server-side invalidation of abandoned channels.
type RequestStore interface {
	Save(ctx context.Context, req *models.VerificationRequest) error
	Get(ctx context.Context, requestID string) (*models.VerificationRequest, error)
	MarkVerified(ctx context.Context, requestID, appointmentID string) error
	MarkFailed(ctx context.Context, requestID, reason string) error
}

// RedisRequestStore keeps verification requests as JSON blobs with a TTL.
type RedisRequestStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRequestStore returns a store expiring requests after ttl.
func NewRedisRequestStore(client *redis.Client, ttl time.Duration) *RedisRequestStore {
	return &RedisRequestStore{client: client, ttl: ttl}
}

func requestKey(requestID string) string {
	return "verify:" + requestID
}

func (s *RedisRequestStore) Save(ctx context.Context, req *models.VerificationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal verification request: %w", err)
	}
	if err := s.client.Set(ctx, requestKey(req.RequestID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification request: %w", err)
	}
	return nil
}

func (s *RedisRequestStore) Get(ctx context.Context, requestID string) (*models.VerificationRequest, error) {
	data, err := s.client.Get(ctx, requestKey(requestID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch verification request %s: %w", requestID, err)
	}
	var req models.VerificationRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return nil, fmt.Errorf("failed to parse verification request %s: %w", requestID, err)
	}
	return &req, nil
}

func (s *RedisRequestStore) MarkVerified(ctx context.Context, requestID, appointmentID string) error {
	return s.update(ctx, requestID, func(req *models.VerificationRequest) {
		req.Status = models.VerificationVerified
		req.AppointmentID = appointmentID
		req.Error = ""
	})
}

func (s *RedisRequestStore) MarkFailed(ctx context.Context, requestID, reason string) error {
	return s.update(ctx, requestID, func(req *models.VerificationRequest) {
		req.Status = models.VerificationFailed
		req.Error = reason
	})
}

func (s *RedisRequestStore) update(ctx context.Context, requestID string, mutate func(*models.VerificationRequest)) error {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	mutate(req)
	return s.Save(ctx, req)
}
