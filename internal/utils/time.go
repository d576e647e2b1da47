package utils

import (
	"fmt"
	"strings"
	"time"
)

// StartOfDay returns local midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// InToday reports whether ts falls within [StartOfDay(now), now].
func InToday(ts, now time.Time) bool {
	start := StartOfDay(now)
	return !ts.Before(start) && !ts.After(now)
}

// ParseClock validates a "HH:mm" time of day and returns it zero-padded.
func ParseClock(s string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:mm", s)
	}
	return t.Format("15:04"), nil
}

// AtClock returns the instant clock ("HH:mm") falls on during day's calendar
// day, in day's location. clock must already be valid.
func AtClock(day time.Time, clock string) time.Time {
	t, _ := time.Parse("15:04", clock)
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, day.Location())
}
