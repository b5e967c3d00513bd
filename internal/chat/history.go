package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	historyKeyPrefix = "chat:history:" // list of turns per user: chat:history:{uid}
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// HistoryStore keeps the recent turns of each user. It is a record only; turns are never
// sent back upstream as context.
type HistoryStore interface {
	Append(ctx context.Context, userID string, turns ...Turn) error
	Recent(ctx context.Context, userID string, limit int) ([]Turn, error)
	Clear(ctx context.Context, userID string) error
}

// NopHistory is used when no Redis is configured.
type NopHistory struct{}

func (NopHistory) Append(context.Context, string, ...Turn) error { return nil }

func (NopHistory) Recent(context.Context, string, int) ([]Turn, error) { return []Turn{}, nil }

func (NopHistory) Clear(context.Context, string) error { return nil }

// RedisHistory stores turns in a capped Redis list with a sliding TTL.
type RedisHistory struct {
	client *redis.Client
	size   int
	ttl    time.Duration
}

func NewRedisHistory(client *redis.Client, size int, ttl time.Duration) *RedisHistory {
	if size <= 0 {
		size = 50
	}
	return &RedisHistory{client: client, size: size, ttl: ttl}
}

func (r *RedisHistory) Append(ctx context.Context, userID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values = append(values, b)
	}

	key := historyKey(userID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-r.size), -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat history: %w", err)
	}
	return nil
}

// Recent returns up to limit turns, oldest first. limit <= 0 returns everything kept.
func (r *RedisHistory) Recent(ctx context.Context, userID string, limit int) ([]Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.client.LRange(ctx, historyKey(userID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, s := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisHistory) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, historyKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}

func historyKey(userID string) string {
	return historyKeyPrefix + userID
}
