package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sugarscope/sugarscope/internal/database"
	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
)

// ReminderRepository handles reminder configurations
type ReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

var _ domain.ReminderStore = (*ReminderRepository)(nil)

// Create stores a new reminder
func (r *ReminderRepository) Create(ctx context.Context, rem domain.Reminder) error {
	if !rem.Kind.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown reminder kind %q", rem.Kind))
	}
	if len(rem.Times) == 0 {
		return apperrors.NewValidationError("reminder needs at least one time")
	}
	if rem.ID == uuid.Nil {
		rem.ID = uuid.New()
	}

	row := database.ReminderConfig{
		ID:      rem.ID,
		Kind:    string(rem.Kind),
		Times:   strings.Join(rem.Times, ","),
		Label:   rem.Label,
		Dose:    rem.Dose,
		Enabled: rem.Enabled,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("failed to create reminder: %w", err))
	}
	return nil
}

// List returns every reminder, oldest first
func (r *ReminderRepository) List(ctx context.Context) ([]domain.Reminder, error) {
	var rows []database.ReminderConfig
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to get reminders: %w", err))
	}

	reminders := make([]domain.Reminder, 0, len(rows))
	for _, row := range rows {
		var times []string
		if row.Times != "" {
			times = strings.Split(row.Times, ",")
		}
		reminders = append(reminders, domain.Reminder{
			ID:      row.ID,
			Kind:    domain.ReminderKind(row.Kind),
			Times:   times,
			Label:   row.Label,
			Dose:    row.Dose,
			Enabled: row.Enabled,
		})
	}
	return reminders, nil
}

// Delete removes a reminder by ID
func (r *ReminderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&database.ReminderConfig{})
	if result.Error != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("failed to delete reminder: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
