package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind is the kind of a health log entry
type EntryKind string

const (
	KindGlucose    EntryKind = "glucose"
	KindMeal       EntryKind = "meal"
	KindSugar      EntryKind = "sugar"
	KindMedication EntryKind = "medication"
)

// Valid reports whether k is one of the known kinds
func (k EntryKind) Valid() bool {
	switch k {
	case KindGlucose, KindMeal, KindSugar, KindMedication:
		return true
	}
	return false
}

// CountsTowardSugar reports whether entries of this kind add to the daily sugar total
func (k EntryKind) CountsTowardSugar() bool {
	return k == KindSugar || k == KindMeal
}

const (
	UnitMgDL  = "mg/dL"
	UnitGrams = "g"
)

// HealthLogEntry is a single recorded health event. Entries are immutable
// once created; the log only appends and deletes.
//
// Glucose: Value in mg/dL. Meal/sugar: Value is grams of sugar and
// SecondaryValue grams of carbs. Medication: Note only.
type HealthLogEntry struct {
	ID              uuid.UUID
	Timestamp       time.Time
	Kind            EntryKind
	Value           *float64
	Unit            string
	SecondaryValue  *float64
	Note            string
	MealDescription string
}

// NewHealthLogEntry creates an entry with a fresh ID
func NewHealthLogEntry(kind EntryKind, ts time.Time) HealthLogEntry {
	return HealthLogEntry{
		ID:        uuid.New(),
		Timestamp: ts,
		Kind:      kind,
	}
}

// SugarGrams returns the sugar contribution of the entry, zero for kinds that don't count
func (e HealthLogEntry) SugarGrams() float64 {
	if !e.Kind.CountsTowardSugar() || e.Value == nil {
		return 0
	}
	return *e.Value
}

// Float returns a pointer to v, for optional entry values
func Float(v float64) *float64 {
	return &v
}

// AlertLevel is the severity of a sugar alert
type AlertLevel string

const (
	LevelWarning  AlertLevel = "warning"
	LevelExceeded AlertLevel = "exceeded"
)

// Valid reports whether l is a known level
func (l AlertLevel) Valid() bool {
	return l == LevelWarning || l == LevelExceeded
}

// AlertThresholdConfig is the user's daily sugar budget
type AlertThresholdConfig struct {
	DailyLimitGrams float64
	WarningRatio    float64
}

// AlertDispatchRecord is one instance of an alert having been sent
type AlertDispatchRecord struct {
	Level     AlertLevel `json:"level"`
	Timestamp time.Time  `json:"timestamp"`
}

// DailySummary reports the state of the current day
type DailySummary struct {
	Day        time.Time
	SugarGrams float64
	LimitGrams float64
	Alerts     []AlertDispatchRecord
}

// ReminderKind is what a reminder prompts for
type ReminderKind string

const (
	ReminderMedication ReminderKind = "medication"
	ReminderGlucose    ReminderKind = "glucose"
	ReminderMeal       ReminderKind = "meal"
)

// Valid reports whether k is a known reminder kind
func (k ReminderKind) Valid() bool {
	switch k {
	case ReminderMedication, ReminderGlucose, ReminderMeal:
		return true
	}
	return false
}

// Reminder repeats daily at each of Times ("HH:mm", device-local). Label is
// the medication name for medication reminders and optional body text for the
// others.
type Reminder struct {
	ID      uuid.UUID
	Kind    ReminderKind
	Times   []string
	Label   string
	Dose    string
	Enabled bool
}
