package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// stateTTL clears dialogs the user walked away from.
const stateTTL = 24 * time.Hour

// RedisManager keeps chat states in Redis so a restart doesn't drop a dialog
type RedisManager struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisManager creates a new Redis-based state manager
func NewRedisManager(client *redis.Client, log *slog.Logger) *RedisManager {
	return &RedisManager{client: client, log: log}
}

func stateKey(chatID int64) string {
	return fmt.Sprintf("sugarscope:chat:%d:state", chatID)
}

// SetState sets the state for a chat with TTL
func (m *RedisManager) SetState(ctx context.Context, chatID int64, state string) {
	if err := m.client.Set(ctx, stateKey(chatID), state, stateTTL).Err(); err != nil {
		m.log.Warn("Failed to store chat state", "chat_id", chatID, "state", state, "error", err)
	}
}

// GetState gets the state for a chat, falling back to None on any error
func (m *RedisManager) GetState(ctx context.Context, chatID int64) string {
	state, err := m.client.Get(ctx, stateKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return None
	}
	if err != nil {
		m.log.Warn("Failed to read chat state", "chat_id", chatID, "error", err)
		return None
	}
	return state
}

// ClearState clears the state for a chat
func (m *RedisManager) ClearState(ctx context.Context, chatID int64) {
	if err := m.client.Del(ctx, stateKey(chatID)).Err(); err != nil {
		m.log.Warn("Failed to clear chat state", "chat_id", chatID, "error", err)
	}
}
