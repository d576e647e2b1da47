package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sugarscope/sugarscope/internal/config"
	"github.com/sugarscope/sugarscope/internal/database/migrations"
)

// HealthLogEntry is the stored form of domain.HealthLogEntry
type HealthLogEntry struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Timestamp       time.Time `gorm:"index;not null"`
	Kind            string    `gorm:"size:16;not null"`
	PrimaryValue    *float64
	Unit            string `gorm:"size:16"`
	SecondaryValue  *float64
	Note            string
	MealDescription string
	CreatedAt       time.Time
}

// AlertDispatch is one persisted alert dispatch
type AlertDispatch struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID     string    `gorm:"size:64;not null;index:idx_alert_dispatch_device_time,priority:1"`
	Level        string    `gorm:"size:16;not null"`
	DispatchedAt time.Time `gorm:"not null;index:idx_alert_dispatch_device_time,priority:2"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM.
func (AlertDispatch) TableName() string {
	return "alert_dispatch_records"
}

// NewAlertDispatch builds a row with a fresh ID
func NewAlertDispatch(deviceID, level string, at time.Time) AlertDispatch {
	return AlertDispatch{
		ID:           uuid.New(),
		DeviceID:     deviceID,
		Level:        level,
		DispatchedAt: at,
	}
}

// ReminderConfig is a stored daily reminder. Times holds "HH:mm" values
// joined with commas.
type ReminderConfig struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"size:16;not null"`
	Times     string    `gorm:"not null"`
	Label     string
	Dose      string
	Enabled   bool `gorm:"not null"`
	CreatedAt time.Time
}

// NewPostgresDB connects, migrates the schema and applies the embedded SQL migrations.
func NewPostgresDB(cfg config.DBConfig, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// Tables first; the SQL migrations add indexes on top of them.
	if err := db.AutoMigrate(&HealthLogEntry{}, &AlertDispatch{}, &ReminderConfig{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := migrations.LoadSQLMigrations(migrations.Embedded()); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := migrations.RunMigrations(db, log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database connection established and migrations completed", "host", cfg.Host, "db", cfg.DBName)
	return db, nil
}
