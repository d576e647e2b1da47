package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sugarscope/sugarscope/internal/database"
	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
)

// HealthLogRepository handles health log entries
type HealthLogRepository struct {
	db *gorm.DB
}

// NewHealthLogRepository creates a new health log repository
func NewHealthLogRepository(db *gorm.DB) *HealthLogRepository {
	return &HealthLogRepository{db: db}
}

var _ domain.HealthLogStore = (*HealthLogRepository)(nil)

// Append stores a new entry
func (r *HealthLogRepository) Append(ctx context.Context, entry domain.HealthLogEntry) error {
	if !entry.Kind.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown entry kind %q", entry.Kind))
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	row := toRow(entry)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("failed to create health log entry: %w", err))
	}
	return nil
}

// Range returns entries with start <= timestamp <= end, oldest first
func (r *HealthLogRepository) Range(ctx context.Context, start, end time.Time) ([]domain.HealthLogEntry, error) {
	var rows []database.HealthLogEntry
	if err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", start, end).
		Order("timestamp ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to get health log entries: %w", err))
	}

	entries := make([]domain.HealthLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, fromRow(row))
	}
	return entries, nil
}

// Delete removes an entry by ID
func (r *HealthLogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&database.HealthLogEntry{})
	if result.Error != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("failed to delete health log entry: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SugarTotal sums the sugar grams of sugar and meal entries in [start, end]
func (r *HealthLogRepository) SugarTotal(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	if err := r.db.WithContext(ctx).
		Model(&database.HealthLogEntry{}).
		Select("COALESCE(SUM(primary_value), 0)").
		Where("kind IN ? AND timestamp >= ? AND timestamp <= ?",
			[]string{string(domain.KindSugar), string(domain.KindMeal)}, start, end).
		Scan(&total).Error; err != nil {
		return 0, apperrors.NewDatabaseError(fmt.Errorf("failed to sum sugar: %w", err))
	}
	return total, nil
}

func toRow(e domain.HealthLogEntry) database.HealthLogEntry {
	return database.HealthLogEntry{
		ID:              e.ID,
		Timestamp:       e.Timestamp,
		Kind:            string(e.Kind),
		PrimaryValue:    e.Value,
		Unit:            e.Unit,
		SecondaryValue:  e.SecondaryValue,
		Note:            e.Note,
		MealDescription: e.MealDescription,
	}
}

func fromRow(r database.HealthLogEntry) domain.HealthLogEntry {
	return domain.HealthLogEntry{
		ID:              r.ID,
		Timestamp:       r.Timestamp,
		Kind:            domain.EntryKind(r.Kind),
		Value:           r.PrimaryValue,
		Unit:            r.Unit,
		SecondaryValue:  r.SecondaryValue,
		Note:            r.Note,
		MealDescription: r.MealDescription,
	}
}
