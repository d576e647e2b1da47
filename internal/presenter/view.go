package presenter

import (
	"fmt"

	"github.com/sugarscope/sugarscope/internal/domain"
	"github.com/sugarscope/sugarscope/internal/message"
)

// HapticPattern is a device vibration pattern
type HapticPattern string

const (
	HapticFailure      HapticPattern = "failure"
	HapticNotification HapticPattern = "notification"
)

// Sound is a system notification sound
type Sound string

const (
	SoundDefault  Sound = "default"
	SoundCritical Sound = "critical"
)

// AlertView is the in-app alert. The immediate path and a tapped
// notification both end up here.
type AlertView struct {
	Alert    message.AlertMessage
	Headline string
	Today    string
	Limit    string
	Action   string
}

// NewAlertView builds the view for an alert
func NewAlertView(m message.AlertMessage) AlertView {
	headline := "Almost There"
	if m.Level == domain.LevelExceeded {
		headline = "Sugar Limit Exceeded"
	}
	return AlertView{
		Alert:    m,
		Headline: headline,
		Today:    fmt.Sprintf("Today: %d g", int(m.SugarGrams)),
		Limit:    fmt.Sprintf("Limit: %d g", int(m.LimitGrams)),
		Action:   "Got it",
	}
}

// Text renders the view without styling
func (v AlertView) Text() string {
	return v.Headline + "\n" + v.Today + "\n" + v.Limit
}

// Notification is a system notification request
type Notification struct {
	ID    string
	Title string
	Body  string
	Sound Sound
	Alert message.AlertMessage
}

// NewNotification builds the system notification for an alert
func NewNotification(m message.AlertMessage) Notification {
	sugar, limit := int(m.SugarGrams), int(m.LimitGrams)
	n := Notification{
		ID:    "sugarAlert-" + string(m.Level),
		Alert: m,
	}
	if m.Level == domain.LevelExceeded {
		n.Title = "⚠️ Sugar Limit Exceeded"
		n.Body = fmt.Sprintf("You've had %dg of %dg today.", sugar, limit)
		n.Sound = SoundCritical
	} else {
		n.Title = "🍬 Almost at Your Limit"
		n.Body = fmt.Sprintf("%dg of %dg used today.", sugar, limit)
		n.Sound = SoundDefault
	}
	return n
}

// HapticFor returns the pattern played for a level
func HapticFor(level domain.AlertLevel) HapticPattern {
	if level == domain.LevelExceeded {
		return HapticFailure
	}
	return HapticNotification
}
