package service

import (
	"context"
	"errors"
	"fmt"
	showingserrors "showings/internal/showings/errors"
	"showings/pkg/config"
	apperrors "showings/pkg/errors"
	"showings/pkg/logger"
	"showings/pkg/model"
	"sort"
	"sync"
	"time"
)

// memShowingRepository is an in-memory ShowingRepository. ExecuteTransaction holds a
// single mutex, which is enough to model the per-lot serialization of the real stores.
type memShowingRepository struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	showings map[string]*model.Showing
	seq      int
	locked   []string

	findScheduledErr error
	createErr        error
}

func newMemRepo() *memShowingRepository {
	return &memShowingRepository{showings: map[string]*model.Showing{}}
}

func (r *memShowingRepository) seed(s model.Showing) *model.Showing {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("showing-%d", r.seq)
	}
	cp := s
	r.showings[s.ID] = &cp
	out := cp
	return &out
}

func (r *memShowingRepository) get(id string) *model.Showing {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.showings[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (r *memShowingRepository) Create(ctx context.Context, showing *model.Showing) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	showing.ID = fmt.Sprintf("showing-%d", r.seq)
	showing.CreatedAt = time.Now().UTC()
	showing.UpdatedAt = showing.CreatedAt
	cp := *showing
	r.showings[showing.ID] = &cp
	return nil
}

func (r *memShowingRepository) FindByID(ctx context.Context, id string) (*model.Showing, error) {
	if id == "bad-id" {
		return nil, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}
	s := r.get(id)
	if s == nil {
		return nil, showingserrors.ErrNotFound
	}
	return s, nil
}

func (r *memShowingRepository) Find(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Showing
	for _, s := range r.showings {
		if filter.LotID != "" && s.LotID != filter.LotID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.From != nil && !s.EndTime.After(*filter.From) {
			continue
		}
		if filter.To != nil && !s.StartTime.Before(*filter.To) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })

	if int(offset) >= len(out) {
		return []*model.Showing{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memShowingRepository) Count(ctx context.Context, filter model.ShowingFilter) (int64, error) {
	all, err := r.Find(ctx, filter, 0, 0)
	return int64(len(all)), err
}

func (r *memShowingRepository) FindScheduledInRange(ctx context.Context, lotID string, start, end time.Time) ([]*model.Showing, error) {
	if r.findScheduledErr != nil {
		return nil, r.findScheduledErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Showing
	for _, s := range r.showings {
		if s.LotID != lotID || s.Status != model.StatusScheduled {
			continue
		}
		if s.StartTime.After(end) || s.EndTime.Before(start) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memShowingRepository) UpdateStatus(ctx context.Context, id string, from, to model.ShowingStatus) (*model.Showing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.showings[id]
	if !ok {
		return nil, showingserrors.ErrNotFound
	}
	if s.Status != from {
		cp := *s
		return &cp, showingserrors.ErrStatusChanged
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	return &cp, nil
}

func (r *memShowingRepository) UpdateTimes(ctx context.Context, id string, start, end time.Time) (*model.Showing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.showings[id]
	if !ok {
		return nil, showingserrors.ErrNotFound
	}
	if s.Status != model.StatusScheduled {
		cp := *s
		return &cp, showingserrors.ErrStatusChanged
	}
	s.StartTime, s.EndTime = start, end
	cp := *s
	return &cp, nil
}

func (r *memShowingRepository) SetCalendarEvent(ctx context.Context, id, eventID, link string, onlyIfScheduled bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.showings[id]
	if !ok || (onlyIfScheduled && s.Status != model.StatusScheduled) {
		return false, nil
	}
	s.CalendarEventID, s.CalendarLink, s.SyncError = eventID, link, false
	return true, nil
}

func (r *memShowingRepository) ClearCalendarEvent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.showings[id]
	if !ok {
		return showingserrors.ErrNotFound
	}
	s.CalendarEventID, s.CalendarLink, s.SyncError = "", "", false
	return nil
}

func (r *memShowingRepository) SetSyncError(ctx context.Context, id string, failed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.showings[id]
	if !ok {
		return showingserrors.ErrNotFound
	}
	s.SyncError = failed
	return nil
}

func (r *memShowingRepository) FindForReconcile(ctx context.Context, q model.ReconcileQuery) ([]*model.Showing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Showing
	for _, s := range r.showings {
		if s.Status == model.StatusScheduled && s.CalendarEventID != "" && !s.SyncError && q.Scope == model.ReconcileSynced {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memShowingRepository) LockLot(ctx context.Context, lotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = append(r.locked, lotID)
	return nil
}

func (r *memShowingRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(ctx)
}

func (r *memShowingRepository) Ping(ctx context.Context) error {
	return nil
}

type mockLots struct {
	lots map[string]*model.Lot
}

func (m *mockLots) GetByID(ctx context.Context, id string) (*model.Lot, error) {
	if lot, ok := m.lots[id]; ok {
		return lot, nil
	}
	return nil, apperrors.NotFoundWithID("Lot", id)
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []model.SyncTask
	err   error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, task model.SyncTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *recordingDispatcher) count(action model.SyncAction) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, t := range d.tasks {
		if t.Action == action {
			n++
		}
	}
	return n
}

var errQueueFull = errors.New("calendar sync queue is full")

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:     "info",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MinShowingDuration: 10 * time.Minute,
		MaxShowingDuration: 4 * time.Hour,
		CalendarTimeZone:   "UTC",
	}
}

func errTimeConflictFromStore() error {
	return fmt.Errorf("insert: %w", showingserrors.ErrTimeConflict)
}
