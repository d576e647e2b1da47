package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
)

// maxGlucoseMgDL rejects readings no meter reports.
const maxGlucoseMgDL = 1000

// ParseAmount reads a non-negative number, accepting a decimal comma and a
// trailing "g" ("12,5g").
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "g")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewValidationError("not a number: " + s)
	}
	if v < 0 {
		return 0, apperrors.NewValidationError("amount must not be negative")
	}
	return v, nil
}

// ParseSugar parses "/sugar <grams> [note]" arguments
func ParseSugar(args string) (grams float64, note string, err error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", apperrors.NewValidationError("missing grams")
	}
	grams, err = ParseAmount(fields[0])
	if err != nil {
		return 0, "", err
	}
	return grams, strings.Join(fields[1:], " "), nil
}

// ParseMeal parses "/meal <sugar g> <carbs g> <description>" arguments
func ParseMeal(args string) (sugar, carbs float64, description string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, 0, "", apperrors.NewValidationError("meal needs sugar and carbs grams")
	}
	if sugar, err = ParseAmount(fields[0]); err != nil {
		return 0, 0, "", err
	}
	if carbs, err = ParseAmount(fields[1]); err != nil {
		return 0, 0, "", err
	}
	if sugar > carbs {
		return 0, 0, "", apperrors.NewValidationError("sugar can't exceed carbs")
	}
	return sugar, carbs, strings.Join(fields[2:], " "), nil
}

// ParseGlucose parses a mg/dL reading
func ParseGlucose(args string) (float64, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, apperrors.NewValidationError("expected one glucose value")
	}
	v, err := ParseAmount(fields[0])
	if err != nil {
		return 0, err
	}
	if v == 0 || v > maxGlucoseMgDL {
		return 0, apperrors.NewValidationError("glucose out of range")
	}
	return v, nil
}

var reminderKinds = map[string]domain.ReminderKind{
	"med":        domain.ReminderMedication,
	"medication": domain.ReminderMedication,
	"glucose":    domain.ReminderGlucose,
	"meal":       domain.ReminderMeal,
}

// ParseReminder parses "/remind <med|glucose|meal> <HH:mm[,HH:mm]> [text]"
// arguments. For medication the first word of text is the name and the rest
// is the dose; otherwise text is the label. Times are checked by the caller.
func ParseReminder(args string) (kind domain.ReminderKind, times []string, label, dose string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", nil, "", "", apperrors.NewValidationError("reminder needs a kind and a time")
	}
	kind, ok := reminderKinds[strings.ToLower(fields[0])]
	if !ok {
		return "", nil, "", "", apperrors.NewValidationError("unknown reminder kind: " + fields[0])
	}
	for _, t := range strings.Split(fields[1], ",") {
		if t = strings.TrimSpace(t); t != "" {
			times = append(times, t)
		}
	}

	rest := fields[2:]
	if kind == domain.ReminderMedication && len(rest) > 0 {
		return kind, times, rest[0], strings.Join(rest[1:], " "), nil
	}
	return kind, times, strings.Join(rest, " "), "", nil
}

// ParseCaption reads optional sugar grams from a photo caption. An empty
// caption yields zero.
func ParseCaption(caption string) (float64, error) {
	if strings.TrimSpace(caption) == "" {
		return 0, nil
	}
	return ParseAmount(caption)
}
