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

	"github.com/sugarscope/sugarscope/internal/alert"
	"github.com/sugarscope/sugarscope/internal/domain"
	"github.com/sugarscope/sugarscope/internal/logger"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/transport"
)

type memStore struct {
	mu        sync.Mutex
	entries   []domain.HealthLogEntry
	appendErr error
	totalErr  error
}

func (m *memStore) Append(_ context.Context, e domain.HealthLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) Range(_ context.Context, start, end time.Time) ([]domain.HealthLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HealthLogEntry
	for _, e := range m.entries {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memStore) SugarTotal(ctx context.Context, start, end time.Time) (float64, error) {
	if m.totalErr != nil {
		return 0, m.totalErr
	}
	entries, _ := m.Range(ctx, start, end)
	var total float64
	for _, e := range entries {
		total += e.SugarGrams()
	}
	return total, nil
}

type captureSender struct {
	mu   sync.Mutex
	sent []message.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, m message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return c.err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type serviceFixture struct {
	svc    *AlertService
	store  *memStore
	sender *captureSender
	clock  *fakeClock
}

func setupAlertService(t *testing.T) serviceFixture {
	t.Helper()
	f := serviceFixture{
		store:  &memStore{},
		sender: &captureSender{},
		clock:  &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)},
	}
	f.svc = NewAlertService(
		f.store,
		alert.NewHistoryStore(nil, logger.Discard()),
		alert.NewPolicyEngine(alert.DefaultPolicy()),
		domain.StaticLimit{DailyLimitGrams: 25, WarningRatio: 0.85},
		f.sender,
		logger.Discard(),
		WithClock(f.clock.Now),
		WithLocation(time.UTC),
	)
	return f
}

func sugarEntry(grams float64) domain.HealthLogEntry {
	e := domain.NewHealthLogEntry(domain.KindSugar, time.Time{})
	e.Value = domain.Float(grams)
	e.Unit = domain.UnitGrams
	return e
}

func logEntry(t *testing.T, svc *AlertService, e domain.HealthLogEntry) domain.HealthLogEntry {
	t.Helper()
	stored, err := svc.LogEntry(context.Background(), e)
	require.NoError(t, err)
	return stored
}

func TestLogEntry_OneDayScenario(t *testing.T) {
	f := setupAlertService(t)

	logEntry(t, f.svc, sugarEntry(10))
	assert.Empty(t, f.sender.sent)

	f.clock.Advance(time.Hour)
	logEntry(t, f.svc, sugarEntry(12))
	require.Len(t, f.sender.sent, 1)
	warn := f.sender.sent[0].(message.AlertMessage)
	assert.Equal(t, domain.LevelWarning, warn.Level)
	assert.Equal(t, 22.0, warn.SugarGrams)
	assert.Equal(t, 25.0, warn.LimitGrams)

	f.clock.Advance(10 * time.Minute)
	logEntry(t, f.svc, sugarEntry(1))
	assert.Len(t, f.sender.sent, 1)

	f.clock.Advance(3 * time.Hour)
	logEntry(t, f.svc, sugarEntry(3))
	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, domain.LevelExceeded, f.sender.sent[1].(message.AlertMessage).Level)

	f.clock.Advance(3 * time.Hour)
	logEntry(t, f.svc, sugarEntry(1))
	assert.Len(t, f.sender.sent, 2)
}

func TestLogEntry_NonSugarKindsSkipEvaluation(t *testing.T) {
	f := setupAlertService(t)

	logEntry(t, f.svc, sugarEntry(30))
	require.Len(t, f.sender.sent, 1)

	g := domain.NewHealthLogEntry(domain.KindGlucose, time.Time{})
	g.Value = domain.Float(140)
	logEntry(t, f.svc, g)
	assert.Len(t, f.store.entries, 2)
	assert.Len(t, f.sender.sent, 1)
}

func TestLogEntry_StoreFailureReturnsError(t *testing.T) {
	f := setupAlertService(t)
	f.store.appendErr = errors.New("connection refused")

	_, err := f.svc.LogEntry(context.Background(), sugarEntry(30))
	require.Error(t, err)
	assert.Empty(t, f.sender.sent)
}

func TestLogEntry_AlertFailuresDoNotFailLogging(t *testing.T) {
	f := setupAlertService(t)
	f.sender.err = errors.New("broker down")

	logEntry(t, f.svc, sugarEntry(30))
	require.Len(t, f.sender.sent, 1)

	// Recorded before delivery, so a later entry does not re-fire.
	logEntry(t, f.svc, sugarEntry(1))
	assert.Len(t, f.sender.sent, 1)
}

func TestEvaluateDailyTotal_TotalFailureIsNoAlert(t *testing.T) {
	f := setupAlertService(t)
	f.store.totalErr = errors.New("timeout")

	d := f.svc.EvaluateDailyTotal(context.Background(), f.clock.Now())
	assert.Equal(t, alert.NoAlert, d.Outcome)
	assert.Empty(t, f.sender.sent)
}

func TestEvaluateDailyTotal_NewDayResets(t *testing.T) {
	f := setupAlertService(t)

	logEntry(t, f.svc, sugarEntry(30))
	require.Len(t, f.sender.sent, 1)

	f.clock.Advance(24 * time.Hour)
	logEntry(t, f.svc, sugarEntry(22))
	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, domain.LevelWarning, f.sender.sent[1].(message.AlertMessage).Level)
}

func TestHandleInbound_CreatesEntries(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()

	f.svc.HandleInbound(ctx, transport.Envelope{Message: message.LogGlucose{MgDL: 132}})
	f.svc.HandleInbound(ctx, transport.Envelope{Message: message.ConfirmMedication{Name: message.DefaultMedicationName}})
	f.svc.HandleInbound(ctx, transport.Envelope{Message: message.ConfirmGlucoseReminder{}})

	require.Len(t, f.store.entries, 3)

	glucose := f.store.entries[0]
	assert.Equal(t, domain.KindGlucose, glucose.Kind)
	require.NotNil(t, glucose.Value)
	assert.Equal(t, 132.0, *glucose.Value)
	assert.Equal(t, domain.UnitMgDL, glucose.Unit)
	assert.Equal(t, NoteLoggedFromCompanion, glucose.Note)
	assert.Equal(t, f.clock.Now(), glucose.Timestamp)

	med := f.store.entries[1]
	assert.Equal(t, domain.KindMedication, med.Kind)
	assert.Equal(t, "Medication (confirmed on companion)", med.Note)

	check := f.store.entries[2]
	assert.Equal(t, domain.KindGlucose, check.Kind)
	assert.Nil(t, check.Value)
	assert.Equal(t, NoteCheckConfirmed, check.Note)

	assert.Empty(t, f.sender.sent)
}

func TestHandleInbound_AckAndAlertsAreNotLogged(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()
	now := f.clock.Now()

	f.svc.HandleInbound(ctx, transport.Envelope{Message: message.AlertAck{Level: domain.LevelWarning, Timestamp: now}})
	f.svc.HandleInbound(ctx, transport.Envelope{Message: message.NewAlert(domain.LevelWarning, 22, 25, now)})

	assert.Empty(t, f.store.entries)
}

func TestDailySummary(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()

	logEntry(t, f.svc, sugarEntry(12))
	f.clock.Advance(time.Hour)
	logEntry(t, f.svc, sugarEntry(10))

	sum, err := f.svc.DailySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), sum.Day)
	assert.Equal(t, 22.0, sum.SugarGrams)
	assert.Equal(t, 25.0, sum.LimitGrams)
	require.Len(t, sum.Alerts, 1)
	assert.Equal(t, domain.LevelWarning, sum.Alerts[0].Level)

	entries, err := f.svc.TodayEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLogEntry_ConcurrentFiresOnce(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()
	require.NoError(t, f.store.Append(ctx, func() domain.HealthLogEntry {
		e := sugarEntry(30)
		e.Timestamp = f.clock.Now()
		return e
	}()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.EvaluateDailyTotal(ctx, f.clock.Now())
		}()
	}
	wg.Wait()

	assert.Len(t, f.sender.sent, 1)
}

func TestDeleteEntry(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()

	e := sugarEntry(5)
	logEntry(t, f.svc, e)
	require.NoError(t, f.svc.DeleteEntry(ctx, e.ID))
	assert.Empty(t, f.store.entries)
	assert.Error(t, f.svc.DeleteEntry(ctx, e.ID))
}

func TestLogEntry_ReturnsStampedEntry(t *testing.T) {
	f := setupAlertService(t)

	stored := logEntry(t, f.svc, sugarEntry(12))
	assert.Equal(t, f.clock.Now(), stored.Timestamp)
	assert.Equal(t, f.store.entries[0], stored)

	earlier := sugarEntry(3)
	earlier.Timestamp = f.clock.Now().Add(-time.Hour)
	assert.Equal(t, earlier.Timestamp, logEntry(t, f.svc, earlier).Timestamp)
}

func TestTodayEntries_UseServiceLocation(t *testing.T) {
	f := setupAlertService(t)
	berlin := time.FixedZone("CET", 3600)
	f.svc.loc = berlin
	ctx := context.Background()

	// The store hands back UTC, as the postgres driver does.
	e := sugarEntry(25)
	e.Timestamp = time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	require.NoError(t, f.store.Append(ctx, e))
	f.svc.EvaluateDailyTotal(ctx, f.clock.Now())

	entries, err := f.svc.TodayEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, berlin, entries[0].Timestamp.Location())
	assert.Equal(t, "08:30", entries[0].Timestamp.Format("15:04"))

	sum, err := f.svc.DailySummary(ctx)
	require.NoError(t, err)
	require.Len(t, sum.Alerts, 1)
	assert.Equal(t, "09:00", sum.Alerts[0].Timestamp.Format("15:04"))
}
