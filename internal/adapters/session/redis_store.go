package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/searchiq/storefront/internal/domain/providers"
	redisclient "github.com/searchiq/storefront/internal/infrastructure/clients/redis"
)

const redisKeyPrefix = "session:"

// RedisStore keeps each session as one Redis hash with a sliding TTL.
type RedisStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store. ttl is the idle
// lifetime applied on every write.
func NewRedisStore(client *redisclient.Client, ttl time.Duration) providers.SessionStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Get reads one field of the session hash.
func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	val, err := s.client.Client().HGet(ctx, redisKey(sessionID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session key %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes one field and refreshes the session TTL.
func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	pipe := s.client.Client().TxPipeline()
	pipe.HSet(ctx, redisKey(sessionID), key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, redisKey(sessionID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write session key %s: %w", key, err)
	}
	return nil
}

// Delete removes the given fields, or the whole session when none are named.
func (s *RedisStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	var err error
	if len(keys) == 0 {
		err = s.client.Client().Del(ctx, redisKey(sessionID)).Err()
	} else {
		err = s.client.Client().HDel(ctx, redisKey(sessionID), keys...).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to delete session keys: %w", err)
	}
	return nil
}

// Touch extends the session lifetime.
func (s *RedisStore) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := s.client.Client().Expire(ctx, redisKey(sessionID), ttl).Err(); err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}
