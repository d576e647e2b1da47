package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/utils"
)

// Reminder texts shown on the companion
const (
	TitleMedication    = "Medication"
	TitleGlucoseCheck  = "Blood glucose check"
	TitleMeal          = "Meal reminder"
	defaultGlucoseBody = "Time to check your blood sugar."
	defaultMealBody    = "Time for your meal."
)

const (
	defaultReminderTick = 30 * time.Second
	// Occurrences older than this when the scheduler wakes up are skipped.
	reminderCatchUp = 5 * time.Minute
)

// ReminderService stores daily reminders and sends each occurrence to the
// companion when it comes due.
type ReminderService struct {
	store  domain.ReminderStore
	sender Sender
	loc    *time.Location
	now    func() time.Time
	tick   time.Duration
	log    *slog.Logger
	errs   *apperrors.Handler
}

// ReminderOption configures a ReminderService
type ReminderOption func(*ReminderService)

// WithReminderClock replaces time.Now
func WithReminderClock(now func() time.Time) ReminderOption {
	return func(s *ReminderService) { s.now = now }
}

// WithTick sets how often Run checks for due reminders
func WithTick(d time.Duration) ReminderOption {
	return func(s *ReminderService) { s.tick = d }
}

func NewReminderService(store domain.ReminderStore, sender Sender, loc *time.Location, log *slog.Logger, opts ...ReminderOption) *ReminderService {
	s := &ReminderService{
		store:  store,
		sender: sender,
		loc:    loc,
		now:    time.Now,
		tick:   defaultReminderTick,
		log:    log,
		errs:   apperrors.NewHandler(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReminderService) clock() time.Time {
	return s.now().In(s.loc)
}

// AddReminder creates an enabled reminder. Times are "HH:mm"; duplicates are
// dropped. For medication reminders label is the medication name.
func (s *ReminderService) AddReminder(ctx context.Context, kind domain.ReminderKind, times []string, label, dose string) (domain.Reminder, error) {
	if !kind.Valid() {
		return domain.Reminder{}, apperrors.NewValidationError(fmt.Sprintf("unknown reminder kind %q", kind))
	}

	seen := make(map[string]bool, len(times))
	clean := make([]string, 0, len(times))
	for _, t := range times {
		c, err := utils.ParseClock(t)
		if err != nil {
			return domain.Reminder{}, apperrors.NewValidationError(err.Error())
		}
		if !seen[c] {
			seen[c] = true
			clean = append(clean, c)
		}
	}
	if len(clean) == 0 {
		return domain.Reminder{}, apperrors.NewValidationError("reminder needs at least one time")
	}
	sort.Strings(clean)

	label = strings.TrimSpace(label)
	if kind == domain.ReminderMedication && label == "" {
		label = message.DefaultMedicationName
	}

	rem := domain.Reminder{
		ID:      uuid.New(),
		Kind:    kind,
		Times:   clean,
		Label:   label,
		Dose:    strings.TrimSpace(dose),
		Enabled: true,
	}
	if err := s.store.Create(ctx, rem); err != nil {
		return domain.Reminder{}, err
	}
	s.log.Info("Reminder created", "id", rem.ID, "kind", kind, "times", clean)
	return rem, nil
}

// ListReminders returns every stored reminder
func (s *ReminderService) ListReminders(ctx context.Context) ([]domain.Reminder, error) {
	return s.store.List(ctx)
}

// DeleteReminder removes a reminder
func (s *ReminderService) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Reminder deleted", "id", id)
	return nil
}

// Run sends due reminders until ctx is done. Occurrences that passed before
// Run started are not sent.
func (s *ReminderService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	last := s.clock()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := s.clock()
			s.SendDue(ctx, last, now)
			last = now
		}
	}
}

// SendDue sends every occurrence in (after, upTo] and returns how many were
// handed to the transport.
func (s *ReminderService) SendDue(ctx context.Context, after, upTo time.Time) int {
	reminders, err := s.store.List(ctx)
	if err != nil {
		s.errs.Handle(ctx, err)
		return 0
	}

	sent := 0
	for _, msg := range dueReminders(reminders, after.In(s.loc), upTo.In(s.loc)) {
		if err := s.sender.Send(ctx, msg); err != nil {
			s.errs.Handle(ctx, apperrors.NewTransportError(err, "send reminder").WithContext("reminder", msg.For))
			continue
		}
		s.log.Info("Reminder sent", "reminder", msg.For, "title", msg.Title, "due", msg.Timestamp)
		sent++
	}
	return sent
}

// dueReminders lists occurrences of enabled reminders in (after, upTo],
// oldest first. after is clamped to reminderCatchUp before upTo.
func dueReminders(reminders []domain.Reminder, after, upTo time.Time) []message.Reminder {
	if floor := upTo.Add(-reminderCatchUp); after.Before(floor) {
		after = floor
	}
	days := []time.Time{utils.StartOfDay(after)}
	if today := utils.StartOfDay(upTo); !today.Equal(days[0]) {
		days = append(days, today)
	}

	var due []message.Reminder
	for _, r := range reminders {
		if !r.Enabled {
			continue
		}
		for _, day := range days {
			for _, clock := range r.Times {
				if _, err := utils.ParseClock(clock); err != nil {
					continue
				}
				occurs := utils.AtClock(day, clock)
				if occurs.After(after) && !occurs.After(upTo) {
					due = append(due, reminderMessage(r, occurs))
				}
			}
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Timestamp.Before(due[j].Timestamp)
	})
	return due
}

func reminderMessage(r domain.Reminder, at time.Time) message.Reminder {
	msg := message.Reminder{For: r.Kind, Timestamp: at}
	switch r.Kind {
	case domain.ReminderMedication:
		msg.Title = TitleMedication
		msg.Medication = r.Label
		msg.Body = strings.TrimSpace(r.Label + " " + r.Dose)
	case domain.ReminderGlucose:
		msg.Title = TitleGlucoseCheck
		msg.Body = orDefault(r.Label, defaultGlucoseBody)
	default:
		msg.Title = TitleMeal
		msg.Body = orDefault(r.Label, defaultMealBody)
	}
	return msg
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
