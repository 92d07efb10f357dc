package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
	redisclient "github.com/searchiq/storefront/internal/infrastructure/clients/redis"
)

// RedisHistory stores each session's history as a capped Redis list.
type RedisHistory struct {
	client     *redisclient.Client
	maxEntries int
	ttl        time.Duration
}

// NewRedisHistory creates a Redis-backed history store.
func NewRedisHistory(client *redisclient.Client, maxEntries int, ttl time.Duration) providers.HistoryStore {
	if maxEntries <= 0 {
		maxEntries = entities.DefaultSearchHistorySize
	}
	return &RedisHistory{client: client, maxEntries: maxEntries, ttl: ttl}
}

func historyKey(sessionID string) string {
	return "history:" + sessionID
}

// Append pushes entry and trims the list to the newest maxEntries in one MULTI.
func (h *RedisHistory) Append(ctx context.Context, sessionID string, entry *entities.SearchHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := historyKey(sessionID)
	_, err = h.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-h.maxEntries), -1)
		if h.ttl > 0 {
			pipe.Expire(ctx, key, h.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// List returns the session's history, oldest first.
func (h *RedisHistory) List(ctx context.Context, sessionID string) ([]*entities.SearchHistoryEntry, error) {
	raw, err := h.client.Client().LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	entries := make([]*entities.SearchHistoryEntry, 0, len(raw))
	for _, item := range raw {
		var e entities.SearchHistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// Clear drops the session's history.
func (h *RedisHistory) Clear(ctx context.Context, sessionID string) error {
	if err := h.client.Client().Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
