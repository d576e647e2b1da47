package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// HealthLogStore is the append-only health log queried by timestamp range
type HealthLogStore interface {
	Append(ctx context.Context, entry HealthLogEntry) error
	Range(ctx context.Context, start, end time.Time) ([]HealthLogEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SugarTotal(ctx context.Context, start, end time.Time) (float64, error)
}

// ReminderStore persists reminder configurations
type ReminderStore interface {
	Create(ctx context.Context, r Reminder) error
	List(ctx context.Context) ([]Reminder, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LimitProvider supplies the user's configured daily sugar budget
type LimitProvider interface {
	Threshold(ctx context.Context) AlertThresholdConfig
}

// StaticLimit is a LimitProvider returning a fixed configuration
type StaticLimit AlertThresholdConfig

// Threshold implements LimitProvider
func (s StaticLimit) Threshold(context.Context) AlertThresholdConfig {
	return AlertThresholdConfig(s)
}
