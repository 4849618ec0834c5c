package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const verificationKeyPrefix = "tableflow:verify:"

// ErrVerificationNotFound is returned for unknown, expired or consumed tokens.
var ErrVerificationNotFound = errors.New("verification token not found")

// VerificationStore keeps single-use account verification tokens.
type VerificationStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
}

type redisVerificationStore struct {
	client *redis.Client
}

// NewRedisVerificationStore stores tokens in Redis; expiry is handled by key TTL.
func NewRedisVerificationStore(client *redis.Client) VerificationStore {
	return &redisVerificationStore{client: client}
}

func (s *redisVerificationStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	return s.client.Set(ctx, verificationKeyPrefix+token, userID, ttl).Err()
}

// Consume returns the user id bound to token and deletes it atomically.
func (s *redisVerificationStore) Consume(ctx context.Context, token string) (string, error) {
	if s.client == nil {
		return "", errors.New("redis client not configured")
	}
	userID, err := s.client.GetDel(ctx, verificationKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrVerificationNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
