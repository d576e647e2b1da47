// Package message defines the payloads exchanged between the phone and its
// companion device, and the one place they are encoded and decoded.
package message

import (
	"time"

	"github.com/sugarscope/sugarscope/internal/domain"
)

// Kind identifies a message variant
type Kind string

const (
	KindSugarAlert             Kind = "sugarAlert"
	KindAlertAck               Kind = "sugarAlertAck"
	KindLogGlucose             Kind = "logGlucose"
	KindConfirmMedication      Kind = "confirmMedication"
	KindConfirmGlucoseReminder Kind = "confirmGlucoseReminder"
	KindReminder               Kind = "reminder"
)

// DefaultMedicationName is used when a confirmation carries no name
const DefaultMedicationName = "Medication"

// Message is one of the variants below
type Message interface {
	Kind() Kind
}

// AlertMessage tells the companion the daily sugar budget needs attention
type AlertMessage struct {
	Level      domain.AlertLevel
	SugarGrams float64
	LimitGrams float64
	Timestamp  time.Time
}

// AlertAck is sent back when the user dismisses an alert
type AlertAck struct {
	Level     domain.AlertLevel
	Timestamp time.Time
}

// LogGlucose asks the phone to record a glucose reading
type LogGlucose struct {
	MgDL float64
}

// ConfirmMedication asks the phone to record a taken medication
type ConfirmMedication struct {
	Name string
}

// ConfirmGlucoseReminder records that a reminded glucose check happened
type ConfirmGlucoseReminder struct{}

// Reminder is a scheduled prompt shown on the companion. Medication names the
// drug for medication reminders and is empty otherwise.
type Reminder struct {
	For        domain.ReminderKind
	Title      string
	Body       string
	Medication string
	Timestamp  time.Time
}

func (AlertMessage) Kind() Kind           { return KindSugarAlert }
func (AlertAck) Kind() Kind               { return KindAlertAck }
func (LogGlucose) Kind() Kind             { return KindLogGlucose }
func (ConfirmMedication) Kind() Kind      { return KindConfirmMedication }
func (ConfirmGlucoseReminder) Kind() Kind { return KindConfirmGlucoseReminder }
func (Reminder) Kind() Kind               { return KindReminder }

// Key identifies the logical alert, for deduplicating presentations
func (m AlertMessage) Key() string {
	return string(m.Level) + "@" + m.Timestamp.UTC().Format(time.RFC3339)
}

// NewAlert builds an AlertMessage for a fired decision
func NewAlert(level domain.AlertLevel, sugar, limit float64, at time.Time) AlertMessage {
	return AlertMessage{Level: level, SugarGrams: sugar, LimitGrams: limit, Timestamp: at}
}
