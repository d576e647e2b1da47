package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sugarscope/sugarscope/internal/alert"
	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/transport"
	"github.com/sugarscope/sugarscope/internal/utils"
)

// Notes attached to entries created from companion messages
const (
	NoteLoggedFromCompanion = "Logged from companion"
	NoteCheckConfirmed      = "Check confirmed on companion"
	medicationConfirmedTmpl = "%s (confirmed on companion)"
)

// Sender delivers a message to the companion
type Sender interface {
	Send(ctx context.Context, msg message.Message) error
}

// AlertService ties the health log to the alert pipeline: every sugar-bearing
// entry re-evaluates the day's total, and fired alerts go to the companion.
type AlertService struct {
	store   domain.HealthLogStore
	history *alert.HistoryStore
	engine  *alert.PolicyEngine
	limits  domain.LimitProvider
	sender  Sender
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
	errs    *apperrors.Handler
}

// AlertServiceOption configures an AlertService
type AlertServiceOption func(*AlertService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) AlertServiceOption {
	return func(s *AlertService) { s.now = now }
}

// WithLocation sets the time zone that defines the calendar day
func WithLocation(loc *time.Location) AlertServiceOption {
	return func(s *AlertService) { s.loc = loc }
}

func NewAlertService(
	store domain.HealthLogStore,
	history *alert.HistoryStore,
	engine *alert.PolicyEngine,
	limits domain.LimitProvider,
	sender Sender,
	log *slog.Logger,
	opts ...AlertServiceOption,
) *AlertService {
	s := &AlertService{
		store:   store,
		history: history,
		engine:  engine,
		limits:  limits,
		sender:  sender,
		loc:     time.Local,
		now:     time.Now,
		log:     log,
		errs:    apperrors.NewHandler(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AlertService) clock() time.Time {
	return s.now().In(s.loc)
}

// LogEntry stores entry and, for sugar and meal entries, re-evaluates the
// day. A zero timestamp is set to now. It returns the entry as stored; only
// the store write can fail the call.
func (s *AlertService) LogEntry(ctx context.Context, entry domain.HealthLogEntry) (domain.HealthLogEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.clock()
	}
	entry.Timestamp = entry.Timestamp.In(s.loc)
	if err := s.store.Append(ctx, entry); err != nil {
		return domain.HealthLogEntry{}, err
	}
	s.log.Info("Health entry logged", "kind", entry.Kind, "id", entry.ID)

	if entry.Kind.CountsTowardSugar() {
		s.EvaluateDailyTotal(ctx, s.clock())
	}
	return entry, nil
}

// EvaluateDailyTotal runs the policy for the day containing now. A fired
// alert is recorded before it is handed to the transport.
func (s *AlertService) EvaluateDailyTotal(ctx context.Context, now time.Time) alert.Decision {
	now = now.In(s.loc)
	threshold := s.limits.Threshold(ctx)

	total, err := s.store.SugarTotal(ctx, utils.StartOfDay(now), now)
	if err != nil {
		s.errs.Handle(ctx, err)
		return alert.Decision{Outcome: alert.NoAlert}
	}

	d := s.history.Decide(ctx, now, func(today []domain.AlertDispatchRecord) alert.Decision {
		return s.engine.Evaluate(total, threshold, today, now)
	})
	s.log.Info("Sugar alert evaluated",
		"total_grams", total,
		"limit_grams", threshold.DailyLimitGrams,
		"decision", d.String(),
		"ratio", d.Ratio,
		"retry_after", d.RetryAfter,
	)

	if d.Fired() {
		msg := message.NewAlert(d.Level, total, threshold.DailyLimitGrams, now)
		if err := s.sender.Send(ctx, msg); err != nil {
			s.errs.Handle(ctx, apperrors.NewTransportError(err, "send alert").WithContext("level", d.Level))
		}
	}
	return d
}

// HandleInbound is the transport.Handler for messages from the companion
func (s *AlertService) HandleInbound(ctx context.Context, env transport.Envelope) {
	now := s.clock()
	var entry domain.HealthLogEntry

	switch msg := env.Message.(type) {
	case message.LogGlucose:
		entry = domain.NewHealthLogEntry(domain.KindGlucose, now)
		entry.Value = domain.Float(msg.MgDL)
		entry.Unit = domain.UnitMgDL
		entry.Note = NoteLoggedFromCompanion

	case message.ConfirmMedication:
		entry = domain.NewHealthLogEntry(domain.KindMedication, now)
		entry.Note = fmt.Sprintf(medicationConfirmedTmpl, msg.Name)

	case message.ConfirmGlucoseReminder:
		entry = domain.NewHealthLogEntry(domain.KindGlucose, now)
		entry.Note = NoteCheckConfirmed

	case message.AlertAck:
		s.log.Info("Sugar alert acknowledged on companion", "level", msg.Level, "alert_time", msg.Timestamp)
		return

	default:
		s.log.Debug("Ignoring inbound message", "message_type", env.Message.Kind(), "path", env.Path)
		return
	}

	if _, err := s.LogEntry(ctx, entry); err != nil {
		s.errs.Handle(ctx, err)
	}
}

// DailySummary reports today's sugar total against the limit
func (s *AlertService) DailySummary(ctx context.Context) (domain.DailySummary, error) {
	now := s.clock()
	start := utils.StartOfDay(now)

	total, err := s.store.SugarTotal(ctx, start, now)
	if err != nil {
		return domain.DailySummary{}, err
	}
	alerts := s.history.TodayRecords(now)
	for i := range alerts {
		alerts[i].Timestamp = alerts[i].Timestamp.In(s.loc)
	}
	return domain.DailySummary{
		Day:        start,
		SugarGrams: total,
		LimitGrams: s.limits.Threshold(ctx).DailyLimitGrams,
		Alerts:     alerts,
	}, nil
}

// TodayEntries lists today's entries, oldest first, with timestamps in the
// service's location.
func (s *AlertService) TodayEntries(ctx context.Context) ([]domain.HealthLogEntry, error) {
	now := s.clock()
	entries, err := s.store.Range(ctx, utils.StartOfDay(now), now)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Timestamp = entries[i].Timestamp.In(s.loc)
	}
	return entries, nil
}

// DeleteEntry removes an entry. Alerts already sent for the day stay sent.
func (s *AlertService) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Health entry deleted", "id", id)
	return nil
}
