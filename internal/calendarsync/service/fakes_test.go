package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"showings/internal/calendarsync/calendar"
	calendarsyncerrors "showings/internal/calendarsync/errors"
	showingserrors "showings/internal/showings/errors"
	"showings/pkg/config"
	apperrors "showings/pkg/errors"
	"showings/pkg/logger"
	"showings/pkg/model"

	"golang.org/x/oauth2"
)

func testConfig() *config.Config {
	return &config.Config{
		Log:              logger.Discard(),
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		CalendarName:     "Lot Showings",
		CalendarTimeZone: "UTC",
	}
}

type memShowingStore struct {
	mu       sync.Mutex
	showings map[string]*model.Showing

	// beforeSet runs inside SetCalendarEvent, before the status check.
	beforeSet func(s *model.Showing)
	setErr    error

	reconcileErr     error
	reconcileQueries []model.ReconcileQuery
}

func newShowingStore(showings ...model.Showing) *memShowingStore {
	store := &memShowingStore{showings: map[string]*model.Showing{}}
	for _, s := range showings {
		cp := s
		store.showings[s.ID] = &cp
	}
	return store
}

func (m *memShowingStore) get(id string) model.Showing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.showings[id]
}

func (m *memShowingStore) FindByID(ctx context.Context, id string) (*model.Showing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.showings[id]
	if !ok {
		return nil, showingserrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memShowingStore) SetCalendarEvent(ctx context.Context, id, eventID, link string, onlyIfScheduled bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	s, ok := m.showings[id]
	if !ok {
		return false, nil
	}
	if m.beforeSet != nil {
		m.beforeSet(s)
	}
	if onlyIfScheduled && s.Status != model.StatusScheduled {
		return false, nil
	}
	s.CalendarEventID = eventID
	s.CalendarLink = link
	s.SyncError = false
	return true, nil
}

func (m *memShowingStore) ClearCalendarEvent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.showings[id]
	if !ok {
		return showingserrors.ErrNotFound
	}
	s.CalendarEventID = ""
	s.CalendarLink = ""
	s.SyncError = false
	return nil
}

func (m *memShowingStore) SetSyncError(ctx context.Context, id string, failed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.showings[id]
	if !ok {
		return showingserrors.ErrNotFound
	}
	s.SyncError = failed
	return nil
}

// FindForReconcile mirrors the stores: scope filter, (start_time, id) order, keyset paging.
func (m *memShowingStore) FindForReconcile(ctx context.Context, q model.ReconcileQuery) ([]*model.Showing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconcileQueries = append(m.reconcileQueries, q)
	if m.reconcileErr != nil {
		return nil, m.reconcileErr
	}

	var out []*model.Showing
	for _, s := range m.showings {
		if !inReconcileScope(s, q.Scope) {
			continue
		}
		if q.After != nil && !afterCursor(s, q.After) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func inReconcileScope(s *model.Showing, scope model.ReconcileScope) bool {
	if scope == model.ReconcileFailed {
		return s.SyncError && (s.Status == model.StatusScheduled || s.CalendarEventID != "")
	}
	return s.Status == model.StatusScheduled && s.CalendarEventID != "" && !s.SyncError
}

func afterCursor(s *model.Showing, c *model.ReconcileCursor) bool {
	if s.StartTime.Equal(c.StartTime) {
		return s.ID > c.ID
	}
	return s.StartTime.After(c.StartTime)
}

type mockLots struct {
	lots map[string]*model.Lot
}

func (m *mockLots) GetByID(ctx context.Context, id string) (*model.Lot, error) {
	lot, ok := m.lots[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("Lot", id)
	}
	return lot, nil
}

type mockCredentials struct {
	creds map[string]*model.CalendarCredential
	err   error
}

func (m *mockCredentials) FindByOwner(ctx context.Context, ownerID string) (*model.CalendarCredential, error) {
	if m.err != nil {
		return nil, m.err
	}
	cred, ok := m.creds[ownerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", calendarsyncerrors.ErrCredentialMissing, ownerID)
	}
	cp := *cred
	return &cp, nil
}

type staticTokens struct{}

func (staticTokens) TokenSource(ctx context.Context, cred *model.CalendarCredential) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access-" + cred.OwnerID})
}

// fakeCalendar records calls. Func fields override the default behaviour.
type fakeCalendar struct {
	mu      sync.Mutex
	nextID  int
	events  map[string]calendar.Event
	deleted []string
	ensured int

	ensureFn func(ctx context.Context, name, tz string) (string, error)
	insertFn func(ctx context.Context, calendarID string, e calendar.Event) (calendar.EventRef, error)
	patchFn  func(ctx context.Context, calendarID, eventID string, e calendar.Event) (calendar.EventRef, error)
	deleteFn func(ctx context.Context, calendarID, eventID string) error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string]calendar.Event{}}
}

func (f *fakeCalendar) factory() calendar.Factory {
	return func(ctx context.Context, ts oauth2.TokenSource) (calendar.Calendar, error) {
		if _, err := ts.Token(); err != nil {
			return nil, err
		}
		return f, nil
	}
}

func (f *fakeCalendar) EnsureCalendar(ctx context.Context, name, tz string) (string, error) {
	f.mu.Lock()
	f.ensured++
	f.mu.Unlock()
	if f.ensureFn != nil {
		return f.ensureFn(ctx, name, tz)
	}
	return "cal-" + name, nil
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, calendarID string, e calendar.Event) (calendar.EventRef, error) {
	if f.insertFn != nil {
		return f.insertFn(ctx, calendarID, e)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	f.events[id] = e
	return calendar.EventRef{ID: id, Link: "https://calendar.example/" + id}, nil
}

func (f *fakeCalendar) PatchEvent(ctx context.Context, calendarID, eventID string, e calendar.Event) (calendar.EventRef, error) {
	if f.patchFn != nil {
		return f.patchFn(ctx, calendarID, eventID, e)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return calendar.EventRef{}, calendarsyncerrors.ErrEventGone
	}
	f.events[eventID] = e
	return calendar.EventRef{ID: eventID, Link: "https://calendar.example/" + eventID}, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, calendarID, eventID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []model.SyncTask
	err   error
}

func (d *recordingDispatcher) DispatchWait(ctx context.Context, task model.SyncTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}
