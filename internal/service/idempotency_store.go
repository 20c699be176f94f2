package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const RedisIdempotencyKeyPrefix = "idempotency:assistant:"

// IdempotencyStore reserves caller-supplied request keys per user.
type IdempotencyStore interface {
	// Reserve returns false when the key was already reserved.
	Reserve(ctx context.Context, userID uuid.UUID, key string) (bool, error)
	Release(ctx context.Context, userID uuid.UUID, key string) error
}

type redisIdempotencyStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisIdempotencyStore(redisClient *redis.Client, ttl time.Duration) IdempotencyStore {
	return &redisIdempotencyStore{redisClient: redisClient, ttl: ttl}
}

func idempotencyKey(userID uuid.UUID, key string) string {
	return fmt.Sprintf("%s%s:%s", RedisIdempotencyKeyPrefix, userID.String(), key)
}

func (s *redisIdempotencyStore) Reserve(ctx context.Context, userID uuid.UUID, key string) (bool, error) {
	return s.redisClient.SetNX(ctx, idempotencyKey(userID, key), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
}

func (s *redisIdempotencyStore) Release(ctx context.Context, userID uuid.UUID, key string) error {
	return s.redisClient.Del(ctx, idempotencyKey(userID, key)).Err()
}
