package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"showings/internal/calendarsync/calendar"
	calendarsyncerrors "showings/internal/calendarsync/errors"
	showingserrors "showings/internal/showings/errors"
	"showings/pkg/coalesce"
	"showings/pkg/config"
	"showings/pkg/logger"
	"showings/pkg/model"

	"golang.org/x/oauth2"
)

const flagWriteTimeout = 5 * time.Second

// ShowingStore is the part of the showings repository the synchronizer writes through.
// It only ever touches calendar annotations, never status.
type ShowingStore interface {
	FindByID(ctx context.Context, id string) (*model.Showing, error)
	SetCalendarEvent(ctx context.Context, id, eventID, link string, onlyIfScheduled bool) (bool, error)
	ClearCalendarEvent(ctx context.Context, id string) error
	SetSyncError(ctx context.Context, id string, failed bool) error
	FindForReconcile(ctx context.Context, q model.ReconcileQuery) ([]*model.Showing, error)
}

type LotLookup interface {
	GetByID(ctx context.Context, id string) (*model.Lot, error)
}

type CredentialFinder interface {
	FindByOwner(ctx context.Context, ownerID string) (*model.CalendarCredential, error)
}

// Synchronizer mirrors showings into the lot owner's calendar.
type Synchronizer struct {
	showings    ShowingStore
	lots        LotLookup
	creds       CredentialFinder
	tokens      TokenSourceProvider
	newCalendar calendar.Factory

	// calendars maps owner id to the resolved target calendar id.
	calendars    *coalesce.Group[string]
	calendarName string
	timeZone     string
	log          *logger.Logger
}

func NewSynchronizer(
	showings ShowingStore,
	lots LotLookup,
	creds CredentialFinder,
	tokens TokenSourceProvider,
	newCalendar calendar.Factory,
	cfg *config.Config,
) *Synchronizer {
	return &Synchronizer{
		showings:     showings,
		lots:         lots,
		creds:        creds,
		tokens:       tokens,
		newCalendar:  newCalendar,
		calendars:    coalesce.New[string](cfg.CalendarSyncTimeout),
		calendarName: cfg.CalendarName,
		timeZone:     cfg.CalendarTimeZone,
		log:          cfg.Log.Component("calendar-sync"),
	}
}

// Handle runs one sync task. Failures are recorded on the showing and returned wrapped
// in ErrSync; a missing or revoked credential is not a failure.
func (s *Synchronizer) Handle(ctx context.Context, task model.SyncTask) error {
	showing, err := s.showings.FindByID(ctx, task.ShowingID)
	if err != nil {
		if errors.Is(err, showingserrors.ErrNotFound) || errors.Is(err, showingserrors.ErrInvalidID) {
			s.log.Warn("Sync task for unknown showing dropped", "showing_id", task.ShowingID, "action", task.Action)
			return nil
		}
		return fmt.Errorf("load showing %s: %w", task.ShowingID, err)
	}

	switch task.Action {
	case model.SyncCreate, model.SyncUpdate:
		return s.upsert(ctx, showing)
	case model.SyncDelete:
		return s.remove(ctx, showing)
	default:
		return fmt.Errorf("unknown sync action %q", task.Action)
	}
}

type target struct {
	lot        *model.Lot
	cal        calendar.Calendar
	calendarID string
}

func (s *Synchronizer) resolve(ctx context.Context, lotID string) (*target, error) {
	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("load lot %s: %w", lotID, err)
	}

	cred, err := s.creds.FindByOwner(ctx, lot.OwnerID)
	if err != nil {
		return nil, err
	}

	cal, err := s.newCalendar(ctx, s.tokens.TokenSource(ctx, cred))
	if err != nil {
		return nil, err
	}

	calendarID := cred.CalendarID
	if calendarID == "" {
		calendarID, err = s.calendars.Do(ctx, lot.OwnerID, func(ctx context.Context) (string, error) {
			return cal.EnsureCalendar(ctx, s.calendarName, s.zoneFor(lot))
		})
		if err != nil {
			return nil, fmt.Errorf("resolve calendar for owner %s: %w", lot.OwnerID, err)
		}
	}

	return &target{lot: lot, cal: cal, calendarID: calendarID}, nil
}

func (s *Synchronizer) upsert(ctx context.Context, showing *model.Showing) error {
	if showing.Status != model.StatusScheduled {
		s.log.Debug("Skipping sync of non-scheduled showing", "id", showing.ID, "status", showing.Status)
		return nil
	}

	t, err := s.resolve(ctx, showing.LotID)
	if err != nil {
		return s.fail(ctx, showing, "resolve calendar", err)
	}

	event := s.eventFor(showing, t.lot)
	if showing.CalendarEventID != "" {
		ref, err := t.cal.PatchEvent(ctx, t.calendarID, showing.CalendarEventID, event)
		if err == nil {
			return s.record(ctx, showing, t, ref)
		}
		if !errors.Is(err, calendarsyncerrors.ErrEventGone) {
			return s.fail(ctx, showing, "update event", err)
		}
		s.log.Info("Calendar event removed externally, recreating", "id", showing.ID, "event_id", showing.CalendarEventID)
	}

	ref, err := t.cal.InsertEvent(ctx, t.calendarID, event)
	if err != nil {
		return s.fail(ctx, showing, "create event", err)
	}
	return s.record(ctx, showing, t, ref)
}

// record stores the event on the showing. If the showing stopped being SCHEDULED while
// the event was written, the event is removed again.
func (s *Synchronizer) record(ctx context.Context, showing *model.Showing, t *target, ref calendar.EventRef) error {
	applied, err := s.showings.SetCalendarEvent(ctx, showing.ID, ref.ID, ref.Link, true)
	if err != nil {
		s.discard(ctx, showing, t, ref.ID)
		return s.fail(ctx, showing, "record event", err)
	}
	if !applied {
		s.discard(ctx, showing, t, ref.ID)
		s.log.Info("Showing left SCHEDULED during sync, event removed", "id", showing.ID, "event_id", ref.ID)
		return nil
	}

	s.log.Info("Showing synced to calendar", "id", showing.ID, "lot_id", showing.LotID, "event_id", ref.ID)
	return nil
}

func (s *Synchronizer) discard(ctx context.Context, showing *model.Showing, t *target, eventID string) {
	if err := t.cal.DeleteEvent(ctx, t.calendarID, eventID); err != nil {
		s.log.Error("Failed to remove orphaned calendar event", "id", showing.ID, "event_id", eventID, "error", err)
	}
}

func (s *Synchronizer) remove(ctx context.Context, showing *model.Showing) error {
	if showing.CalendarEventID == "" {
		return nil
	}
	if showing.Status == model.StatusScheduled {
		s.log.Warn("Delete task for scheduled showing ignored", "id", showing.ID)
		return nil
	}

	t, err := s.resolve(ctx, showing.LotID)
	if err != nil {
		return s.fail(ctx, showing, "resolve calendar", err)
	}

	if err := t.cal.DeleteEvent(ctx, t.calendarID, showing.CalendarEventID); err != nil {
		return s.fail(ctx, showing, "delete event", err)
	}
	if err := s.showings.ClearCalendarEvent(ctx, showing.ID); err != nil {
		return fmt.Errorf("%w: clear event on showing %s: %v", calendarsyncerrors.ErrSync, showing.ID, err)
	}

	s.log.Info("Calendar event removed", "id", showing.ID, "event_id", showing.CalendarEventID)
	return nil
}

// fail flags the showing. The flag write gets its own deadline so an expired task
// context still records the failure. Credential problems are skipped without a flag:
// retrying cannot succeed until the owner connects the calendar again.
func (s *Synchronizer) fail(ctx context.Context, showing *model.Showing, op string, cause error) error {
	switch {
	case errors.Is(cause, calendarsyncerrors.ErrCredentialMissing):
		s.log.Debug("No calendar credential, sync skipped", "id", showing.ID, "lot_id", showing.LotID, "operation", op)
		return nil
	case revoked(cause):
		s.log.Warn("Calendar access revoked, owner must reconnect the calendar",
			"id", showing.ID, "lot_id", showing.LotID, "operation", op, "error", cause)
		return nil
	}

	flagCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flagWriteTimeout)
	defer cancel()

	if err := s.showings.SetSyncError(flagCtx, showing.ID, true); err != nil {
		s.log.Error("Failed to flag sync error", "id", showing.ID, "error", err)
	}
	s.log.Warn("Calendar sync failed", "id", showing.ID, "lot_id", showing.LotID, "operation", op, "error", cause)
	return fmt.Errorf("%w: %s: %v", calendarsyncerrors.ErrSync, op, cause)
}

// revoked reports whether the owner's grant is no longer usable.
func revoked(err error) bool {
	if errors.Is(err, calendarsyncerrors.ErrCredentialRevoked) {
		return true
	}
	var rerr *oauth2.RetrieveError
	return errors.As(err, &rerr) && rerr.ErrorCode == "invalid_grant"
}

func (s *Synchronizer) zoneFor(lot *model.Lot) string {
	if lot.TimeZone != "" {
		return lot.TimeZone
	}
	return s.timeZone
}

func (s *Synchronizer) eventFor(showing *model.Showing, lot *model.Lot) calendar.Event {
	var details []string
	details = append(details, "Client: "+showing.ClientName)
	if showing.ClientPhone != "" {
		details = append(details, "Phone: "+showing.ClientPhone)
	}
	if showing.ClientEmail != "" {
		details = append(details, "Email: "+showing.ClientEmail)
	}
	if showing.Notes != "" {
		details = append(details, "", showing.Notes)
	}

	return calendar.Event{
		Summary:     fmt.Sprintf("Showing: %s", lot.Name),
		Description: strings.Join(details, "\n"),
		Location:    lot.Address,
		Start:       showing.StartTime,
		End:         showing.EndTime,
		TimeZone:    s.zoneFor(lot),
		ExternalID:  showing.ID,
	}
}

// ForgetOwner drops the cached target calendar of an owner whose credential changed.
func (s *Synchronizer) ForgetOwner(ownerID string) {
	s.calendars.Forget(ownerID)
}

// Close releases the target calendar cache.
func (s *Synchronizer) Close() {
	s.calendars.Clear()
}
