package queue

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"checkin-queue/internal/helper"
	"checkin-queue/internal/models"
	"checkin-queue/internal/monitoring"
	"checkin-queue/internal/store"
)

const (
	MinAnalyticsDays = 1
	MaxAnalyticsDays = 365
)

// Store is the slice of the record store the engine depends on.
type Store interface {
	Insert(ctx context.Context, rec models.CheckInRecord) (int64, error)
	Get(ctx context.Context, id int64) (models.CheckInRecord, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Position(ctx context.Context, checkInTime, id int64) (int, error)
	ListByStatus(ctx context.Context, status string) ([]models.CheckInRecord, error)
	MarkCompleted(ctx context.Context, id, completedTime, waitSeconds int64) (int64, error)
	ClearPastDue(ctx context.Context, id int64) (int64, error)
}

// Reports produces analytics rollups over completed visits.
type Reports interface {
	Report(ctx context.Context, days int) (models.AnalyticsReport, error)
	Invalidate(ctx context.Context)
}

// Engine applies queue transitions against the record store. It keeps no
// copy of queue state; every call reads or writes the store.
type Engine struct {
	store   Store
	reports Reports
	monitor *monitoring.Monitor

	now           func() time.Time
	pastDue       func() bool
	accountNumber func() string

	// check-ins are serialized so that check-in times follow id order and
	// each position is computed against every earlier insert
	checkInMu   sync.Mutex
	lastCheckIn int64
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPastDue sets the source of the initial past-due flag.
func WithPastDue(f func() bool) Option {
	return func(e *Engine) { e.pastDue = f }
}

func WithAccountNumbers(f func() string) Option {
	return func(e *Engine) { e.accountNumber = f }
}

func WithMonitor(m *monitoring.Monitor) Option {
	return func(e *Engine) { e.monitor = m }
}

func NewEngine(s Store, reports Reports, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		reports:       reports,
		now:           time.Now,
		pastDue:       helper.CoinFlip,
		accountNumber: helper.AccountNumber,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckIn adds a patron to the end of the waiting queue.
func (e *Engine) CheckIn(ctx context.Context, patronName string) (models.CheckInResult, error) {
	name := strings.TrimSpace(patronName)
	if name == "" {
		return models.CheckInResult{}, &ValidationError{Field: "patronName", Message: "Patron name is required"}
	}

	e.checkInMu.Lock()
	defer e.checkInMu.Unlock()

	now := e.now()
	at := now.UnixMilli()
	if at < e.lastCheckIn {
		at = e.lastCheckIn
	}

	rec := models.CheckInRecord{
		PatronName:    name,
		CheckInTime:   at,
		Status:        models.StatusWaiting,
		PastDue:       e.pastDue(),
		AccountNumber: e.accountNumber(),
	}

	id, err := e.store.Insert(ctx, rec)
	if err != nil {
		return models.CheckInResult{}, &StoreError{Op: "check in", Err: err}
	}
	rec.ID = id
	e.lastCheckIn = at

	position, err := e.store.Position(ctx, rec.CheckInTime, id)
	if err != nil {
		log.Printf("[queue] check-in %d stored but position lookup failed: %v", id, err)
		return models.CheckInResult{}, &StoreError{Op: "queue position", Err: err}
	}

	e.monitor.TrackCheckIn()
	log.Printf("[queue] check-in %d (%s) at position %d", id, rec.AccountNumber, position)

	return models.CheckInResult{
		ID:            id,
		Position:      position,
		PastDue:       rec.PastDue,
		AccountNumber: rec.AccountNumber,
		Entry:         Entry(now, rec),
	}, nil
}

// ListWaiting returns the waiting queue in order with wait times computed
// at call time.
func (e *Engine) ListWaiting(ctx context.Context) ([]models.QueueEntry, error) {
	recs, err := e.store.ListByStatus(ctx, models.StatusWaiting)
	if err != nil {
		return nil, &StoreError{Op: "list waiting", Err: err}
	}

	now := e.now()
	entries := make([]models.QueueEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, Entry(now, rec))
	}

	e.monitor.SetWaiting(len(entries))
	return entries, nil
}

// Complete marks a waiting record completed. changed is false when the
// record was already completed, including by a concurrent call.
func (e *Engine) Complete(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, &ValidationError{Field: "id", Message: "Invalid ID"}
	}

	rec, err := e.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		e.monitor.TrackCompletion("not_found", 0)
		return false, &NotFoundError{ID: id}
	}
	if err != nil {
		e.monitor.TrackCompletion("error", 0)
		return false, &StoreError{Op: "complete", Err: err}
	}

	if rec.Status == models.StatusCompleted {
		e.monitor.TrackCompletion("already_completed", 0)
		return false, nil
	}

	completedTime := e.now().UnixMilli()
	wait := CompletionWait(completedTime, rec.CheckInTime)

	n, err := e.store.MarkCompleted(ctx, id, completedTime, wait)
	if err != nil {
		e.monitor.TrackCompletion("error", 0)
		return false, &StoreError{Op: "complete", Err: err}
	}
	if n == 0 {
		e.monitor.TrackCompletion("already_completed", 0)
		return false, nil
	}

	if e.reports != nil {
		e.reports.Invalidate(ctx)
	}

	e.monitor.TrackCompletion("completed", time.Duration(wait)*time.Second)
	log.Printf("[queue] check-in %d completed after %ds", id, wait)
	return true, nil
}

// ClearPastDue resets the past-due flag. Clearing an already clear flag
// succeeds with changed false.
func (e *Engine) ClearPastDue(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, &ValidationError{Field: "id", Message: "Invalid ID"}
	}

	n, err := e.store.ClearPastDue(ctx, id)
	if err != nil {
		return false, &StoreError{Op: "clear past due", Err: err}
	}
	if n > 0 {
		e.monitor.TrackPastDueCleared("cleared")
		return true, nil
	}

	ok, err := e.store.Exists(ctx, id)
	if err != nil {
		return false, &StoreError{Op: "clear past due", Err: err}
	}
	if !ok {
		e.monitor.TrackPastDueCleared("not_found")
		return false, &NotFoundError{ID: id}
	}

	e.monitor.TrackPastDueCleared("unchanged")
	return false, nil
}

// Analytics returns the rollup for the last days days.
func (e *Engine) Analytics(ctx context.Context, days int) (models.AnalyticsReport, error) {
	if days < MinAnalyticsDays || days > MaxAnalyticsDays {
		return models.AnalyticsReport{}, &ValidationError{Field: "days", Message: "Days must be between 1 and 365"}
	}

	if e.reports == nil {
		return models.AnalyticsReport{}, &StoreError{Op: "analytics", Err: ErrNoReports}
	}

	report, err := e.reports.Report(ctx, days)
	if err != nil {
		return models.AnalyticsReport{}, &StoreError{Op: "analytics", Err: err}
	}
	return report, nil
}
