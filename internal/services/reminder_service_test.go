package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/logger"
	"github.com/sugarscope/sugarscope/internal/message"
)

type memReminders struct {
	mu        sync.Mutex
	reminders []domain.Reminder
	listErr   error
}

func (m *memReminders) Create(_ context.Context, r domain.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = append(m.reminders, r)
	return nil
}

func (m *memReminders) List(context.Context) ([]domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.Reminder(nil), m.reminders...), nil
}

func (m *memReminders) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.reminders {
		if r.ID == id {
			m.reminders = append(m.reminders[:i], m.reminders[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type reminderFixture struct {
	svc    *ReminderService
	store  *memReminders
	sender *captureSender
}

func setupReminderService(t *testing.T) reminderFixture {
	t.Helper()
	f := reminderFixture{store: &memReminders{}, sender: &captureSender{}}
	f.svc = NewReminderService(f.store, f.sender, time.UTC, logger.Discard())
	return f
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestAddReminder_NormalizesTimes(t *testing.T) {
	f := setupReminderService(t)

	rem, err := f.svc.AddReminder(context.Background(), domain.ReminderMedication, []string{"20:00", "8:00", "08:00"}, "", " 500 mg ")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "20:00"}, rem.Times)
	assert.Equal(t, message.DefaultMedicationName, rem.Label)
	assert.Equal(t, "500 mg", rem.Dose)
	assert.True(t, rem.Enabled)
	assert.Equal(t, []domain.Reminder{rem}, f.store.reminders)
}

func TestAddReminder_Rejects(t *testing.T) {
	f := setupReminderService(t)
	ctx := context.Background()

	_, err := f.svc.AddReminder(ctx, "bedtime", []string{"22:00"}, "", "")
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	_, err = f.svc.AddReminder(ctx, domain.ReminderGlucose, []string{"25:00"}, "", "")
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	_, err = f.svc.AddReminder(ctx, domain.ReminderMeal, nil, "", "")
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
	assert.Empty(t, f.store.reminders)
}

func TestSendDue_SendsOccurrencesInWindow(t *testing.T) {
	f := setupReminderService(t)
	ctx := context.Background()
	_, err := f.svc.AddReminder(ctx, domain.ReminderMedication, []string{"08:00", "20:00"}, "Metformin", "500 mg")
	require.NoError(t, err)
	_, err = f.svc.AddReminder(ctx, domain.ReminderGlucose, []string{"08:00"}, "", "")
	require.NoError(t, err)
	_, err = f.svc.AddReminder(ctx, domain.ReminderMeal, []string{"08:01"}, "Breakfast", "")
	require.NoError(t, err)

	assert.Equal(t, 2, f.svc.SendDue(ctx, at(7, 59), at(8, 0)))
	assert.Equal(t, []message.Message{
		message.Reminder{For: domain.ReminderMedication, Title: TitleMedication, Body: "Metformin 500 mg", Medication: "Metformin", Timestamp: at(8, 0)},
		message.Reminder{For: domain.ReminderGlucose, Title: TitleGlucoseCheck, Body: defaultGlucoseBody, Timestamp: at(8, 0)},
	}, f.sender.sent)

	// The window is half-open, so 08:00 is not sent again.
	assert.Equal(t, 1, f.svc.SendDue(ctx, at(8, 0), at(8, 1)))
	assert.Equal(t, "Breakfast", f.sender.sent[2].(message.Reminder).Body)
}

func TestSendDue_AcrossMidnight(t *testing.T) {
	f := setupReminderService(t)
	ctx := context.Background()
	_, err := f.svc.AddReminder(ctx, domain.ReminderGlucose, []string{"00:00", "23:59"}, "", "")
	require.NoError(t, err)

	before := time.Date(2026, 3, 10, 23, 58, 30, 0, time.UTC)
	after := time.Date(2026, 3, 11, 0, 0, 30, 0, time.UTC)
	assert.Equal(t, 2, f.svc.SendDue(ctx, before, after))
	assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC), f.sender.sent[0].(message.Reminder).Timestamp)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), f.sender.sent[1].(message.Reminder).Timestamp)
}

func TestSendDue_SkipsDisabledAndStale(t *testing.T) {
	f := setupReminderService(t)
	ctx := context.Background()
	f.store.reminders = []domain.Reminder{
		{ID: uuid.New(), Kind: domain.ReminderMeal, Times: []string{"12:00"}},
		{ID: uuid.New(), Kind: domain.ReminderMeal, Times: []string{"09:00"}, Enabled: true},
	}

	// Woke up three hours late: 09:00 is past the catch-up window.
	assert.Zero(t, f.svc.SendDue(ctx, at(8, 0), at(12, 0)))
	assert.Empty(t, f.sender.sent)
}

func TestSendDue_Failures(t *testing.T) {
	f := setupReminderService(t)
	ctx := context.Background()
	_, err := f.svc.AddReminder(ctx, domain.ReminderGlucose, []string{"08:00"}, "", "")
	require.NoError(t, err)

	f.sender.err = errors.New("transport closed")
	assert.Zero(t, f.svc.SendDue(ctx, at(7, 59), at(8, 0)))
	assert.Len(t, f.sender.sent, 1)

	f.store.listErr = errors.New("db down")
	assert.Zero(t, f.svc.SendDue(ctx, at(7, 59), at(8, 0)))
	assert.Len(t, f.sender.sent, 1)
}

func TestDeleteReminder(t *testing.T) {
	f := setupReminderService(t)
	ctx := context.Background()
	rem, err := f.svc.AddReminder(ctx, domain.ReminderMeal, []string{"12:00"}, "", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteReminder(ctx, rem.ID))
	assert.ErrorIs(t, f.svc.DeleteReminder(ctx, rem.ID), apperrors.ErrNotFound)
}

func TestRun_SendsOnTickAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	store, sender := &memReminders{}, &captureSender{}
	var mu sync.Mutex
	var once sync.Once
	started := make(chan struct{})
	now := at(7, 59)
	clock := func() time.Time {
		mu.Lock()
		t := now
		mu.Unlock()
		once.Do(func() { close(started) })
		return t
	}
	svc := NewReminderService(store, sender, time.UTC, logger.Discard(),
		WithReminderClock(clock), WithTick(5*time.Millisecond))
	_, err := svc.AddReminder(context.Background(), domain.ReminderGlucose, []string{"08:00"}, "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	<-started

	mu.Lock()
	now = at(8, 0)
	mu.Unlock()

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	assert.Len(t, sender.sent, 1)
}
