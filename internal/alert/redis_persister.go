package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sugarscope/sugarscope/internal/domain"
)

// historyTTL keeps yesterday's list around long enough to be purged explicitly.
const historyTTL = 48 * time.Hour

// RedisPersister stores dispatch records as a JSON list under one key.
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister creates a persister for the given device
func NewRedisPersister(client *redis.Client, deviceID string) *RedisPersister {
	return &RedisPersister{
		client: client,
		key:    fmt.Sprintf("sugarscope:%s:alert_history", deviceID),
	}
}

// Key returns the Redis key holding the history
func (p *RedisPersister) Key() string {
	return p.key
}

// Load reads all persisted records
func (p *RedisPersister) Load(ctx context.Context) ([]domain.AlertDispatchRecord, error) {
	raw, err := p.client.LRange(ctx, p.key, 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read alert history: %w", err)
	}

	recs := make([]domain.AlertDispatchRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.AlertDispatchRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode alert record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Append pushes one record and refreshes the key's TTL
func (p *RedisPersister) Append(ctx context.Context, rec domain.AlertDispatchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode alert record: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, p.key, data)
		pipe.Expire(ctx, p.key, historyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append alert record: %w", err)
	}
	return nil
}

// Replace swaps the stored list for recs in one transaction
func (p *RedisPersister) Replace(ctx context.Context, recs []domain.AlertDispatchRecord) error {
	values := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode alert record: %w", err)
		}
		values = append(values, data)
	}

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		if len(values) > 0 {
			pipe.RPush(ctx, p.key, values...)
			pipe.Expire(ctx, p.key, historyTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace alert history: %w", err)
	}
	return nil
}
