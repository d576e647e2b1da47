package message

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
)

type alertWire struct {
	Type      Kind              `json:"type"`
	Level     domain.AlertLevel `json:"level"`
	Sugar     *float64          `json:"sugar,omitempty"`
	Limit     *float64          `json:"limit,omitempty"`
	Timestamp *float64          `json:"timestamp"`
}

type logGlucoseWire struct {
	LogGlucose float64 `json:"logGlucose"`
}

type confirmMedicationWire struct {
	ConfirmMedication bool   `json:"confirmMedication"`
	MedicationName    string `json:"medicationName,omitempty"`
}

type confirmGlucoseReminderWire struct {
	ConfirmGlucoseReminder bool `json:"confirmGlucoseReminder"`
}

type reminderWire struct {
	Type           Kind                `json:"type"`
	Reminder       domain.ReminderKind `json:"reminder"`
	Title          string              `json:"title"`
	Body           string              `json:"body,omitempty"`
	MedicationName string              `json:"medicationName,omitempty"`
	Timestamp      *float64            `json:"timestamp"`
}

// controlKeys are the discriminating keys of messages without a "type" field.
var controlKeys = []Kind{KindLogGlucose, KindConfirmMedication, KindConfirmGlucoseReminder}

// Encode serializes m to its wire form
func Encode(m Message) ([]byte, error) {
	var v any
	switch msg := m.(type) {
	case AlertMessage:
		v = alertWire{
			Type:      KindSugarAlert,
			Level:     msg.Level,
			Sugar:     &msg.SugarGrams,
			Limit:     &msg.LimitGrams,
			Timestamp: epochSeconds(msg.Timestamp),
		}
	case AlertAck:
		v = alertWire{Type: KindAlertAck, Level: msg.Level, Timestamp: epochSeconds(msg.Timestamp)}
	case LogGlucose:
		v = logGlucoseWire{LogGlucose: msg.MgDL}
	case ConfirmMedication:
		v = confirmMedicationWire{ConfirmMedication: true, MedicationName: msg.Name}
	case ConfirmGlucoseReminder:
		v = confirmGlucoseReminderWire{ConfirmGlucoseReminder: true}
	case Reminder:
		v = reminderWire{
			Type:           KindReminder,
			Reminder:       msg.For,
			Title:          msg.Title,
			Body:           msg.Body,
			MedicationName: msg.Medication,
			Timestamp:      epochSeconds(msg.Timestamp),
		}
	default:
		return nil, apperrors.NewUnknownMessageError(fmt.Sprintf("%T", m))
	}
	return json.Marshal(v)
}

// Decode parses a wire payload. Payloads that match no variant return an
// UNKNOWN_MESSAGE error; payloads that match one but are incomplete or carry
// more than one discriminator return MALFORMED_MESSAGE.
func Decode(data []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, apperrors.NewMalformedMessageError("not a JSON object")
	}

	if raw, ok := fields["type"]; ok {
		var kind Kind
		if err := json.Unmarshal(raw, &kind); err != nil {
			return nil, apperrors.NewMalformedMessageError("type is not a string")
		}
		for _, k := range controlKeys {
			if _, ok := fields[string(k)]; ok {
				return nil, apperrors.NewMalformedMessageError("ambiguous payload: type and " + string(k))
			}
		}
		switch kind {
		case KindSugarAlert:
			return decodeAlert(data)
		case KindAlertAck:
			return decodeAck(data)
		case KindReminder:
			return decodeReminder(data)
		default:
			return nil, apperrors.NewUnknownMessageError(string(kind))
		}
	}

	var present []Kind
	for _, k := range controlKeys {
		if _, ok := fields[string(k)]; ok {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		return nil, apperrors.NewUnknownMessageError(strings.Join(keys(fields), ","))
	}
	if len(present) > 1 {
		return nil, apperrors.NewMalformedMessageError(fmt.Sprintf("ambiguous payload: %v", present))
	}

	switch present[0] {
	case KindLogGlucose:
		var w logGlucoseWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, apperrors.NewMalformedMessageError("logGlucose is not a number")
		}
		if w.LogGlucose <= 0 || math.IsInf(w.LogGlucose, 0) {
			return nil, apperrors.NewMalformedMessageError("logGlucose must be positive")
		}
		return LogGlucose{MgDL: w.LogGlucose}, nil

	case KindConfirmMedication:
		var w confirmMedicationWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, apperrors.NewMalformedMessageError("confirmMedication fields have wrong types")
		}
		if !w.ConfirmMedication {
			return nil, apperrors.NewMalformedMessageError("confirmMedication is not true")
		}
		name := strings.TrimSpace(w.MedicationName)
		if name == "" {
			name = DefaultMedicationName
		}
		return ConfirmMedication{Name: name}, nil

	default:
		var w confirmGlucoseReminderWire
		if err := json.Unmarshal(data, &w); err != nil || !w.ConfirmGlucoseReminder {
			return nil, apperrors.NewMalformedMessageError("confirmGlucoseReminder is not true")
		}
		return ConfirmGlucoseReminder{}, nil
	}
}

func decodeAlert(data []byte) (Message, error) {
	var w alertWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperrors.NewMalformedMessageError("sugarAlert fields have wrong types")
	}
	if !w.Level.Valid() {
		return nil, apperrors.NewMalformedMessageError(fmt.Sprintf("unknown level %q", w.Level))
	}
	if w.Sugar == nil || w.Limit == nil || w.Timestamp == nil {
		return nil, apperrors.NewMalformedMessageError("sugarAlert requires sugar, limit and timestamp")
	}
	if *w.Sugar < 0 || *w.Limit <= 0 {
		return nil, apperrors.NewMalformedMessageError("sugarAlert values out of range")
	}
	return AlertMessage{
		Level:      w.Level,
		SugarGrams: *w.Sugar,
		LimitGrams: *w.Limit,
		Timestamp:  fromEpochSeconds(*w.Timestamp),
	}, nil
}

func decodeAck(data []byte) (Message, error) {
	var w alertWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperrors.NewMalformedMessageError("sugarAlertAck fields have wrong types")
	}
	if !w.Level.Valid() {
		return nil, apperrors.NewMalformedMessageError(fmt.Sprintf("unknown level %q", w.Level))
	}
	if w.Timestamp == nil {
		return nil, apperrors.NewMalformedMessageError("sugarAlertAck requires timestamp")
	}
	return AlertAck{Level: w.Level, Timestamp: fromEpochSeconds(*w.Timestamp)}, nil
}

func decodeReminder(data []byte) (Message, error) {
	var w reminderWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperrors.NewMalformedMessageError("reminder fields have wrong types")
	}
	if !w.Reminder.Valid() {
		return nil, apperrors.NewMalformedMessageError(fmt.Sprintf("unknown reminder %q", w.Reminder))
	}
	if strings.TrimSpace(w.Title) == "" || w.Timestamp == nil {
		return nil, apperrors.NewMalformedMessageError("reminder requires title and timestamp")
	}
	return Reminder{
		For:        w.Reminder,
		Title:      w.Title,
		Body:       w.Body,
		Medication: w.MedicationName,
		Timestamp:  fromEpochSeconds(*w.Timestamp),
	}, nil
}

// epochSeconds keeps millisecond precision, which is what the wire carries.
func epochSeconds(t time.Time) *float64 {
	s := float64(t.UnixMilli()) / 1e3
	return &s
}

func fromEpochSeconds(s float64) time.Time {
	return time.UnixMilli(int64(math.Round(s * 1e3)))
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
