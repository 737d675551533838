package service

import (
	"context"
	"errors"
	"fmt"
	showingserrors "showings/internal/showings/errors"
	"showings/internal/showings/overlap"
	"showings/internal/showings/repository"
	"showings/internal/showings/validator"
	"showings/pkg/config"
	apperrors "showings/pkg/errors"
	"showings/pkg/model"
	"showings/pkg/sanitizer"
	"sync"
	"time"

	"github.com/jinzhu/now"
)

type ShowingService interface {
	RequestShowing(ctx context.Context, req *model.ShowingRequest) (*model.Showing, error)
	GetByID(ctx context.Context, id string) (*model.Showing, error)
	List(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, int64, error)
	DailyAgenda(ctx context.Context, lotID string, date string) ([]*model.Showing, error)
	CancelShowing(ctx context.Context, id string) (*model.Showing, error)
	CompleteShowing(ctx context.Context, id string) (*model.Showing, error)
	RescheduleShowing(ctx context.Context, id string, req *model.RescheduleRequest) (*model.Showing, error)
	HasConflict(ctx context.Context, lotID string, start, end time.Time, excludeID string) (bool, error)
}

// LotLookup resolves the lot a showing is requested for. Implementations return an
// AppError (NOT_FOUND) for unknown lots.
type LotLookup interface {
	GetByID(ctx context.Context, id string) (*model.Lot, error)
}

// Dispatcher hands calendar sync work to the background synchronizer. Dispatch must
// not block on the external calendar.
type Dispatcher interface {
	Dispatch(ctx context.Context, task model.SyncTask) error
}

type showingService struct {
	repo       repository.ShowingRepository
	lots       LotLookup
	dispatcher Dispatcher
	validator  *validator.ShowingValidator
	cfg        *config.Config
	now        func() time.Time
}

// NewShowingService wires the lifecycle service. dispatcher may be nil when calendar
// sync is disabled.
func NewShowingService(
	repo repository.ShowingRepository,
	lots LotLookup,
	dispatcher Dispatcher,
	validator *validator.ShowingValidator,
	cfg *config.Config,
) ShowingService {
	return &showingService{
		repo:       repo,
		lots:       lots,
		dispatcher: dispatcher,
		validator:  validator,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *showingService) RequestShowing(ctx context.Context, req *model.ShowingRequest) (*model.Showing, error) {
	s.sanitize(req)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Showing request validation failed", "lot_id", req.LotID, "error", err)
		return nil, apperrors.Validation("Showing validation failed", map[string]any{"error": err.Error()})
	}

	start, end := normalizeWindow(req.StartTime, req.EndTime)
	if err := s.checkWindow(start, end); err != nil {
		s.cfg.Log.Warn("Showing request rejected", "lot_id", req.LotID, "start_time", start, "end_time", end, "error", err)
		return nil, err
	}

	if _, err := s.lots.GetByID(ctx, req.LotID); err != nil {
		return nil, err
	}

	showing := &model.Showing{
		LotID:       req.LotID,
		StartTime:   start,
		EndTime:     end,
		Status:      model.StatusScheduled,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		Notes:       req.Notes,
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockLot(txCtx, showing.LotID); err != nil {
			return err
		}
		if err := s.verifyNoConflict(txCtx, showing.LotID, start, end, ""); err != nil {
			return err
		}
		return s.repo.Create(txCtx, showing)
	})
	if err != nil {
		appErr := s.translateError(err, "Failed to create showing", showing.LotID)
		if apperrors.AsAppError(appErr).Code == apperrors.CodeInternal {
			s.cfg.Log.Error("Failed to create showing", "lot_id", showing.LotID, "error", err)
		} else {
			s.cfg.Log.Info("Showing request rejected", "lot_id", showing.LotID, "start_time", start, "end_time", end, "reason", appErr.Error())
		}
		return nil, appErr
	}

	s.cfg.Log.Info("Showing scheduled successfully",
		"id", showing.ID,
		"lot_id", showing.LotID,
		"start_time", showing.StartTime,
		"end_time", showing.EndTime,
	)

	if s.dispatch(ctx, showing.ID, model.SyncCreate) {
		showing.SyncError = true
	}
	return showing, nil
}

func (s *showingService) GetByID(ctx context.Context, id string) (*model.Showing, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Showing ID cannot be empty")
	}

	showing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateError(err, "Failed to retrieve showing", id)
	}
	return showing, nil
}

func (s *showingService) List(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, int64, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status: %s", filter.Status))
	}

	var count int64
	var showings []*model.Showing
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count showings", "lot_id", filter.LotID, "error", errCount)
			errCount = apperrors.Internal("Failed to count showings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		showings, errFind = s.repo.Find(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list showings", "lot_id", filter.LotID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve showings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return showings, count, nil
}

func (s *showingService) DailyAgenda(ctx context.Context, lotID string, date string) ([]*model.Showing, error) {
	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	loc := s.location(lot)
	day, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid date, expected YYYY-MM-DD: %s", date))
	}

	from := now.With(day).BeginningOfDay().UTC()
	to := now.With(day).EndOfDay().UTC()
	showings, err := s.repo.Find(ctx, model.ShowingFilter{LotID: lotID, Status: model.StatusScheduled, From: &from, To: &to}, 0, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to load daily agenda", "lot_id", lotID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to retrieve showings", err)
	}

	s.cfg.Log.Debug("Daily agenda loaded", "lot_id", lotID, "date", date, "count", len(showings))
	return showings, nil
}

func (s *showingService) CancelShowing(ctx context.Context, id string) (*model.Showing, error) {
	showing, err := s.transition(ctx, id, model.StatusCanceled)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, showing.ID, model.SyncDelete)
	return showing, nil
}

func (s *showingService) CompleteShowing(ctx context.Context, id string) (*model.Showing, error) {
	return s.transition(ctx, id, model.StatusCompleted)
}

func (s *showingService) RescheduleShowing(ctx context.Context, id string, req *model.RescheduleRequest) (*model.Showing, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Showing ID cannot be empty")
	}
	if err := s.validator.ValidateReschedule(req); err != nil {
		s.cfg.Log.Warn("Reschedule validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Reschedule validation failed", map[string]any{"error": err.Error()})
	}

	start, end := normalizeWindow(req.StartTime, req.EndTime)
	if err := s.checkWindow(start, end); err != nil {
		s.cfg.Log.Warn("Reschedule rejected", "id", id, "start_time", start, "end_time", end, "error", err)
		return nil, err
	}

	var updated *model.Showing
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if current.Status != model.StatusScheduled {
			return apperrors.InvalidTransition(current.Status.String(), model.StatusScheduled.String())
		}
		if err := s.repo.LockLot(txCtx, current.LotID); err != nil {
			return err
		}
		if err := s.verifyNoConflict(txCtx, current.LotID, start, end, id); err != nil {
			return err
		}

		updated, err = s.repo.UpdateTimes(txCtx, id, start, end)
		if errors.Is(err, showingserrors.ErrStatusChanged) && updated != nil {
			return apperrors.InvalidTransition(updated.Status.String(), model.StatusScheduled.String())
		}
		return err
	})
	if err != nil {
		appErr := s.translateError(err, "Failed to reschedule showing", id)
		if apperrors.AsAppError(appErr).Code == apperrors.CodeInternal {
			s.cfg.Log.Error("Failed to reschedule showing", "id", id, "error", err)
		}
		return nil, appErr
	}

	s.cfg.Log.Info("Showing rescheduled successfully",
		"id", id,
		"lot_id", updated.LotID,
		"start_time", updated.StartTime,
		"end_time", updated.EndTime,
	)

	if s.dispatch(ctx, updated.ID, model.SyncUpdate) {
		updated.SyncError = true
	}
	return updated, nil
}

func (s *showingService) HasConflict(ctx context.Context, lotID string, start, end time.Time, excludeID string) (bool, error) {
	if lotID == "" {
		return false, apperrors.InvalidInput("lot_id is required")
	}
	start, end = normalizeWindow(start, end)
	if !overlap.ValidRange(start, end) {
		return false, apperrors.InvalidRange("end_time must be after start_time")
	}

	candidates, err := s.repo.FindScheduledInRange(ctx, lotID, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to check showing conflicts", "lot_id", lotID, "error", err)
		return false, apperrors.Internal("Failed to check showing conflicts", err)
	}
	return overlap.FindConflict(candidates, start, end, excludeID) != nil, nil
}

// --- Helpers ---

func (s *showingService) transition(ctx context.Context, id string, to model.ShowingStatus) (*model.Showing, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Showing ID cannot be empty")
	}

	showing, err := s.repo.UpdateStatus(ctx, id, model.StatusScheduled, to)
	if err != nil {
		if errors.Is(err, showingserrors.ErrStatusChanged) && showing != nil {
			s.cfg.Log.Warn("Showing status transition rejected", "id", id, "from", showing.Status, "to", to)
			return nil, apperrors.InvalidTransition(showing.Status.String(), to.String())
		}
		return nil, s.translateError(err, "Failed to update showing status", id)
	}

	s.cfg.Log.Info("Showing status changed", "id", id, "lot_id", showing.LotID, "status", to)
	return showing, nil
}

func (s *showingService) verifyNoConflict(ctx context.Context, lotID string, start, end time.Time, excludeID string) error {
	candidates, err := s.repo.FindScheduledInRange(ctx, lotID, start, end)
	if err != nil {
		return fmt.Errorf("failed to check existing showings: %w", err)
	}

	if c := overlap.FindConflict(candidates, start, end, excludeID); c != nil {
		return apperrors.Conflict(fmt.Sprintf(
			"Showing time overlaps with existing showing (%s - %s)",
			c.StartTime.Format(time.RFC3339),
			c.EndTime.Format(time.RFC3339),
		)).WithDetails(map[string]any{"conflicting_id": c.ID})
	}
	return nil
}

func (s *showingService) checkWindow(start, end time.Time) error {
	if !overlap.ValidRange(start, end) {
		return apperrors.InvalidRange("end_time must be after start_time")
	}
	if d := end.Sub(start); d < s.cfg.MinShowingDuration || d > s.cfg.MaxShowingDuration {
		return apperrors.InvalidRange(fmt.Sprintf("showing duration must be between %s and %s, got %s",
			s.cfg.MinShowingDuration, s.cfg.MaxShowingDuration, d))
	}
	if start.Before(s.now()) {
		return apperrors.InvalidRange("start_time cannot be in the past")
	}
	return nil
}

// dispatch enqueues a sync task. A task that cannot be queued marks the showing with a
// sync error so reconcile picks it up; it reports whether that happened.
func (s *showingService) dispatch(ctx context.Context, id string, action model.SyncAction) bool {
	if s.dispatcher == nil {
		return false
	}

	task := model.SyncTask{ShowingID: id, Action: action, EnqueuedAt: s.now().UTC()}
	err := s.dispatcher.Dispatch(ctx, task)
	if err == nil {
		return false
	}

	s.cfg.Log.Warn("Failed to enqueue calendar sync task", "id", id, "action", action, "error", err)
	if action == model.SyncDelete {
		return false
	}
	if err := s.repo.SetSyncError(context.WithoutCancel(ctx), id, true); err != nil {
		s.cfg.Log.Error("Failed to flag showing sync error", "id", id, "error", err)
	}
	return true
}

func (s *showingService) translateError(err error, message, id string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, showingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Showing", id)
	case errors.Is(err, showingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid showing ID format")
	case errors.Is(err, showingserrors.ErrTimeConflict):
		return apperrors.Conflict("Showing time overlaps with an existing showing")
	case errors.Is(err, showingserrors.ErrInvalidTimeRange):
		return apperrors.InvalidRange("end_time must be after start_time")
	}
	return apperrors.Internal(message, err)
}

func (s *showingService) sanitize(req *model.ShowingRequest) {
	req.ClientName = sanitizer.NormalizeName(req.ClientName)
	req.ClientEmail = sanitizer.NormalizeEmail(req.ClientEmail)
	if req.ClientPhone != "" {
		if normalized := sanitizer.NormalizePhone(req.ClientPhone); normalized != "" {
			req.ClientPhone = normalized
		}
	}
	req.Notes = sanitizer.NormalizeNotes(req.Notes)
}

func (s *showingService) location(lot *model.Lot) *time.Location {
	if lot != nil && lot.TimeZone != "" {
		if loc, err := time.LoadLocation(lot.TimeZone); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(s.cfg.CalendarTimeZone); err == nil {
		return loc
	}
	return time.UTC
}

func normalizeWindow(start, end time.Time) (time.Time, time.Time) {
	return start.UTC().Truncate(time.Second), end.UTC().Truncate(time.Second)
}
