package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
)

// Classifier recognizes food in a photo
type Classifier interface {
	ClassifyURL(ctx context.Context, url string) ([]Classification, error)
}

// EntryLogger stores a health log entry
type EntryLogger interface {
	LogEntry(ctx context.Context, entry domain.HealthLogEntry) (domain.HealthLogEntry, error)
}

// lowConfidence marks results the user should double check.
const lowConfidence = 0.4

// MealScan is the outcome of logging a meal from a photo
type MealScan struct {
	Entry           domain.HealthLogEntry
	Items           []Classification
	LowConfidence   bool
	SugarOverridden bool
}

// MealScanService turns a food photo into a meal entry
type MealScanService struct {
	classifier Classifier
	logger     EntryLogger
}

func NewMealScanService(classifier Classifier, logger EntryLogger) *MealScanService {
	return &MealScanService{classifier: classifier, logger: logger}
}

// ScanMeal classifies the photo at imageURL and logs it as a meal. When
// sugarGrams > 0 it replaces the estimated sugar.
func (s *MealScanService) ScanMeal(ctx context.Context, imageURL string, sugarGrams float64) (*MealScan, error) {
	items, err := s.classifier.ClassifyURL(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to classify meal photo: %w", err)
	}
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("no food recognized in photo")
	}

	var sugar, carbs float64
	labels := make([]string, 0, len(items))
	for _, it := range items {
		sugar += it.SugarGrams
		carbs += it.CarbsGrams
		labels = append(labels, it.Label)
	}

	scan := &MealScan{Items: items, LowConfidence: items[0].Confidence < lowConfidence}
	if sugarGrams > 0 {
		sugar = sugarGrams
		scan.SugarOverridden = true
	}

	entry := domain.NewHealthLogEntry(domain.KindMeal, time.Time{})
	entry.Value = domain.Float(sugar)
	entry.SecondaryValue = domain.Float(carbs)
	entry.Unit = domain.UnitGrams
	entry.MealDescription = strings.Join(labels, ", ")

	stored, err := s.logger.LogEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	scan.Entry = stored
	return scan, nil
}
