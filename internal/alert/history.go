package alert

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/utils"
)

// Persister is the durable backing for a HistoryStore. The stored form is a
// flat list of records; day filtering happens at read time.
type Persister interface {
	Load(ctx context.Context) ([]domain.AlertDispatchRecord, error)
	Append(ctx context.Context, rec domain.AlertDispatchRecord) error
	Replace(ctx context.Context, recs []domain.AlertDispatchRecord) error
}

// HistoryStore is the per-day log of dispatched alerts.
//
// The in-memory slice is authoritative for the life of the process.
// Persistence is write-through and best effort: a failed write is logged and
// the store keeps going.
type HistoryStore struct {
	mu        sync.Mutex
	records   []domain.AlertDispatchRecord
	persister Persister
	errs      *apperrors.Handler
	log       *slog.Logger
}

// NewHistoryStore creates a store backed by p. A nil p keeps history in memory only.
func NewHistoryStore(p Persister, log *slog.Logger) *HistoryStore {
	return &HistoryStore{
		persister: p,
		errs:      apperrors.NewHandler(log),
		log:       log,
	}
}

// Restore loads persisted records into memory. When they cannot be loaded
// the store assumes a warning went out at now and returns the error for the
// caller to log. Repeat warnings then stay suppressed and the cooldown runs
// from startup, while escalation to exceeded remains possible.
func (s *HistoryStore) Restore(ctx context.Context, now time.Time) error {
	if s.persister == nil {
		return nil
	}
	recs, err := s.persister.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.records = append(s.records, domain.AlertDispatchRecord{Level: domain.LevelWarning, Timestamp: now})
		sortRecords(s.records)
		return apperrors.NewPersistenceError(err, "alert_history")
	}
	s.records = append(s.records[:0], recs...)
	sortRecords(s.records)
	s.log.Info("Alert history restored", "records", len(recs))
	return nil
}

// RecordDispatch appends a dispatch record.
func (s *HistoryStore) RecordDispatch(ctx context.Context, level domain.AlertLevel, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(ctx, domain.AlertDispatchRecord{Level: level, Timestamp: ts})
}

// TodayRecords returns records within [startOfDay(now), now], oldest first.
func (s *HistoryStore) TodayRecords(now time.Time) []domain.AlertDispatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return todayOnly(s.records, now)
}

// PurgeStale drops every record outside today's window.
func (s *HistoryStore) PurgeStale(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(ctx, now)
}

// Decide runs decide against today's records and, if it fires, appends the
// dispatch record before returning. The read and the append happen under one
// lock so concurrent evaluations cannot both fire off the same history.
func (s *HistoryStore) Decide(ctx context.Context, now time.Time, decide func(today []domain.AlertDispatchRecord) Decision) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := decide(todayOnly(s.records, now))
	switch {
	case d.Fired():
		s.appendLocked(ctx, domain.AlertDispatchRecord{Level: d.Level, Timestamp: now})
	case d.PurgeStale:
		s.purgeLocked(ctx, now)
	}
	return d
}

func (s *HistoryStore) appendLocked(ctx context.Context, rec domain.AlertDispatchRecord) {
	s.records = append(s.records, rec)
	sortRecords(s.records)

	if s.persister == nil {
		return
	}
	if err := s.persister.Append(ctx, rec); err != nil {
		s.errs.Handle(ctx, apperrors.NewPersistenceError(err, "alert_history").
			WithContext("level", rec.Level))
	}
}

func (s *HistoryStore) purgeLocked(ctx context.Context, now time.Time) {
	kept := make([]domain.AlertDispatchRecord, 0, len(s.records))
	for _, r := range s.records {
		if utils.InToday(r.Timestamp, now) {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(s.records) {
		return
	}

	s.log.Debug("Purging stale alert history", "dropped", len(s.records)-len(kept))
	s.records = kept
	if s.persister == nil {
		return
	}
	if err := s.persister.Replace(ctx, kept); err != nil {
		s.errs.Handle(ctx, apperrors.NewPersistenceError(err, "alert_history"))
	}
}

func sortRecords(recs []domain.AlertDispatchRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
}
