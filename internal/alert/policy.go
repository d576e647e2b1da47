// Package alert decides when a daily sugar alert fires and keeps the
// per-day dispatch history that the anti-spam rules consult.
package alert

import (
	"fmt"
	"time"

	"github.com/sugarscope/sugarscope/internal/domain"
	"github.com/sugarscope/sugarscope/internal/utils"
)

const (
	DefaultWarningRatio    = 0.85
	DefaultMaxAlertsPerDay = 3
	DefaultMinInterval     = 2 * time.Hour
)

// Outcome is the kind of decision the engine reached
type Outcome int

const (
	NoAlert Outcome = iota
	Suppressed
	Fire
)

func (o Outcome) String() string {
	switch o {
	case Suppressed:
		return "suppressed"
	case Fire:
		return "fire"
	default:
		return "no_alert"
	}
}

// Reason explains a NoAlert or Suppressed outcome
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonDisabled        Reason = "limit_not_set"
	ReasonBelowThreshold  Reason = "below_threshold"
	ReasonAlreadyExceeded Reason = "already_exceeded_today"
	ReasonRepeatWarning   Reason = "warning_already_sent"
	ReasonDailyCap        Reason = "daily_cap_reached"
	ReasonCooldown        Reason = "cooldown_active"
)

// Decision is the result of one evaluation
type Decision struct {
	Outcome Outcome
	Level   domain.AlertLevel
	Reason  Reason
	Ratio   float64

	// PurgeStale asks the caller to drop history from earlier days.
	PurgeStale bool

	// RetryAfter is set for cooldown suppressions.
	RetryAfter time.Duration
}

// Fired reports whether the decision is Fire
func (d Decision) Fired() bool {
	return d.Outcome == Fire
}

func (d Decision) String() string {
	if d.Outcome == Fire {
		return fmt.Sprintf("fire(%s)", d.Level)
	}
	if d.Reason != ReasonNone {
		return fmt.Sprintf("%s(%s)", d.Outcome, d.Reason)
	}
	return d.Outcome.String()
}

// Policy holds the anti-spam limits
type Policy struct {
	MaxAlertsPerDay int
	MinInterval     time.Duration

	// EscalationBypassesCooldown lets Warning -> Exceeded fire inside the
	// cooldown window. The daily cap still applies.
	EscalationBypassesCooldown bool
}

// DefaultPolicy returns the day-cap + cooldown policy
func DefaultPolicy() Policy {
	return Policy{
		MaxAlertsPerDay: DefaultMaxAlertsPerDay,
		MinInterval:     DefaultMinInterval,
	}
}

// PolicyEngine maps (total, threshold, history) to a Decision.
// It holds no state and performs no I/O; time comes in as an argument.
type PolicyEngine struct {
	policy Policy
}

// NewPolicyEngine creates a new policy engine
func NewPolicyEngine(policy Policy) *PolicyEngine {
	if policy.MaxAlertsPerDay <= 0 {
		policy.MaxAlertsPerDay = DefaultMaxAlertsPerDay
	}
	if policy.MinInterval < 0 {
		policy.MinInterval = 0
	}
	return &PolicyEngine{policy: policy}
}

// Policy returns the engine's effective policy
func (e *PolicyEngine) Policy() Policy {
	return e.policy
}

// Evaluate decides whether an alert should fire for totalSugar grams today.
// Records outside [startOfDay(now), now] are ignored even if passed in.
func (e *PolicyEngine) Evaluate(totalSugar float64, threshold domain.AlertThresholdConfig, history []domain.AlertDispatchRecord, now time.Time) Decision {
	if threshold.DailyLimitGrams <= 0 {
		return Decision{Outcome: NoAlert, Reason: ReasonDisabled}
	}

	ratio := totalSugar / threshold.DailyLimitGrams
	level, ok := levelFor(ratio, warningRatio(threshold))
	if !ok {
		return Decision{Outcome: NoAlert, Reason: ReasonBelowThreshold, Ratio: ratio, PurgeStale: true}
	}

	today := todayOnly(history, now)
	suppress := func(reason Reason) Decision {
		return Decision{Outcome: Suppressed, Level: level, Reason: reason, Ratio: ratio}
	}

	var warned, exceeded bool
	for _, r := range today {
		switch r.Level {
		case domain.LevelExceeded:
			exceeded = true
		case domain.LevelWarning:
			warned = true
		}
	}

	if exceeded {
		return suppress(ReasonAlreadyExceeded)
	}
	if warned && level == domain.LevelWarning {
		return suppress(ReasonRepeatWarning)
	}
	if len(today) >= e.policy.MaxAlertsPerDay {
		return suppress(ReasonDailyCap)
	}

	if n := len(today); n > 0 {
		escalating := warned && level == domain.LevelExceeded
		elapsed := now.Sub(today[n-1].Timestamp)
		if elapsed < e.policy.MinInterval && !(escalating && e.policy.EscalationBypassesCooldown) {
			d := suppress(ReasonCooldown)
			d.RetryAfter = e.policy.MinInterval - elapsed
			return d
		}
	}

	return Decision{Outcome: Fire, Level: level, Ratio: ratio}
}

func levelFor(ratio, warnAt float64) (domain.AlertLevel, bool) {
	switch {
	case ratio >= 1.0:
		return domain.LevelExceeded, true
	case ratio >= warnAt:
		return domain.LevelWarning, true
	default:
		return "", false
	}
}

func warningRatio(t domain.AlertThresholdConfig) float64 {
	if t.WarningRatio <= 0 || t.WarningRatio >= 1 {
		return DefaultWarningRatio
	}
	return t.WarningRatio
}

// todayOnly filters to today's window and returns the records in timestamp order.
func todayOnly(history []domain.AlertDispatchRecord, now time.Time) []domain.AlertDispatchRecord {
	out := make([]domain.AlertDispatchRecord, 0, len(history))
	for _, r := range history {
		if utils.InToday(r.Timestamp, now) {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out
}
