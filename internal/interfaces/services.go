package interfaces

import (
	"context"

	"github.com/google/uuid"

	"github.com/sugarscope/sugarscope/internal/domain"
	"github.com/sugarscope/sugarscope/internal/services"
)

// HealthLogger defines the contract for logging and reading back health entries
type HealthLogger interface {
	LogEntry(ctx context.Context, entry domain.HealthLogEntry) (domain.HealthLogEntry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	DailySummary(ctx context.Context) (domain.DailySummary, error)
	TodayEntries(ctx context.Context) ([]domain.HealthLogEntry, error)
}

// MealScanner defines the contract for logging a meal from a photo
type MealScanner interface {
	ScanMeal(ctx context.Context, imageURL string, sugarGrams float64) (*services.MealScan, error)
}

// FoodSearcher defines the contract for nutrition lookups
type FoodSearcher interface {
	SearchFoods(ctx context.Context, query string) ([]services.FoodRecord, error)
}

// ReminderManager defines the contract for managing daily reminders
type ReminderManager interface {
	AddReminder(ctx context.Context, kind domain.ReminderKind, times []string, label, dose string) (domain.Reminder, error)
	ListReminders(ctx context.Context) ([]domain.Reminder, error)
	DeleteReminder(ctx context.Context, id uuid.UUID) error
}
