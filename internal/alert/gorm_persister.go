package alert

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sugarscope/sugarscope/internal/database"
	"github.com/sugarscope/sugarscope/internal/domain"
)

// GormPersister stores dispatch records in the alert_dispatch_records table.
type GormPersister struct {
	db       *gorm.DB
	deviceID string
}

// NewGormPersister creates a persister scoped to one device
func NewGormPersister(db *gorm.DB, deviceID string) *GormPersister {
	return &GormPersister{db: db, deviceID: deviceID}
}

// Load reads all records for the device, oldest first
func (p *GormPersister) Load(ctx context.Context) ([]domain.AlertDispatchRecord, error) {
	var rows []database.AlertDispatch
	if err := p.db.WithContext(ctx).
		Where("device_id = ?", p.deviceID).
		Order("dispatched_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load alert history: %w", err)
	}

	recs := make([]domain.AlertDispatchRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, domain.AlertDispatchRecord{
			Level:     domain.AlertLevel(row.Level),
			Timestamp: row.DispatchedAt,
		})
	}
	return recs, nil
}

// Append inserts one record
func (p *GormPersister) Append(ctx context.Context, rec domain.AlertDispatchRecord) error {
	row := database.NewAlertDispatch(p.deviceID, string(rec.Level), rec.Timestamp)
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append alert record: %w", err)
	}
	return nil
}

// Replace deletes the device's records and inserts recs in one transaction
func (p *GormPersister) Replace(ctx context.Context, recs []domain.AlertDispatchRecord) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", p.deviceID).Delete(&database.AlertDispatch{}).Error; err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		rows := make([]database.AlertDispatch, 0, len(recs))
		for _, rec := range recs {
			rows = append(rows, database.NewAlertDispatch(p.deviceID, string(rec.Level), rec.Timestamp))
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace alert history: %w", err)
	}
	return nil
}
