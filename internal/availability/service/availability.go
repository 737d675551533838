package service

import (
	"context"
	"errors"
	"fmt"
	availabilityerrors "showings/internal/availability/errors"
	"showings/internal/availability/repository"
	"showings/internal/showings/overlap"
	"showings/pkg/config"
	apperrors "showings/pkg/errors"
	"showings/pkg/model"
	"showings/pkg/sanitizer"
	"time"

	"github.com/go-playground/validator/v10"
)

type AvailabilityService interface {
	AddRule(ctx context.Context, lotID string, rule *model.AvailabilityRule) error
	ListRules(ctx context.Context, lotID string, from, to time.Time) ([]*model.AvailabilityRule, error)
	DeleteRule(ctx context.Context, id string) error
	Offerable(ctx context.Context, lotID string, start, end time.Time) (*model.Offerability, error)
}

type LotLookup interface {
	GetByID(ctx context.Context, id string) (*model.Lot, error)
}

type ConflictChecker interface {
	HasConflict(ctx context.Context, lotID string, start, end time.Time, excludeID string) (bool, error)
}

type availabilityService struct {
	repo      repository.RuleRepository
	lots      LotLookup
	conflicts ConflictChecker
	validate  *validator.Validate
	cfg       *config.Config
}

func NewAvailabilityService(
	repo repository.RuleRepository,
	lots LotLookup,
	conflicts ConflictChecker,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		repo:      repo,
		lots:      lots,
		conflicts: conflicts,
		validate:  validator.New(),
		cfg:       cfg,
	}
}

func (s *availabilityService) AddRule(ctx context.Context, lotID string, rule *model.AvailabilityRule) error {
	rule.LotID = lotID
	rule.Reason = sanitizer.TrimAndNormalize(rule.Reason)
	rule.StartTime = rule.StartTime.UTC().Truncate(time.Second)
	rule.EndTime = rule.EndTime.UTC().Truncate(time.Second)

	if !overlap.ValidRange(rule.StartTime, rule.EndTime) {
		return apperrors.InvalidRange("end_time must be after start_time")
	}
	if err := s.validate.Struct(rule); err != nil {
		s.cfg.Log.Warn("Availability rule validation failed", "lot_id", lotID, "error", err)
		return apperrors.Validation("Availability rule validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if _, err := s.lots.GetByID(ctx, lotID); err != nil {
		return err
	}

	existing, err := s.repo.FindByLot(ctx, lotID, rule.StartTime, rule.EndTime)
	if err != nil {
		s.cfg.Log.Error("Failed to load availability rules", "lot_id", lotID, "error", err)
		return apperrors.Internal("Failed to load availability rules", err)
	}
	for _, e := range existing {
		if e.Kind == rule.Kind && overlap.Conflicts(e.StartTime, e.EndTime, rule.StartTime, rule.EndTime) {
			return apperrors.Conflict(fmt.Sprintf("Overlapping %s rule already exists (id: %s)", rule.Kind, e.ID))
		}
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		s.cfg.Log.Error("Failed to create availability rule", "lot_id", lotID, "error", err)
		return apperrors.Internal("Failed to create availability rule", err)
	}

	s.cfg.Log.Info("Availability rule created",
		"id", rule.ID,
		"lot_id", lotID,
		"kind", rule.Kind,
		"start_time", rule.StartTime,
		"end_time", rule.EndTime,
	)
	return nil
}

func (s *availabilityService) ListRules(ctx context.Context, lotID string, from, to time.Time) ([]*model.AvailabilityRule, error) {
	if lotID == "" {
		return nil, apperrors.InvalidInput("Lot ID cannot be empty")
	}
	rules, err := s.repo.FindByLot(ctx, lotID, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to list availability rules", "lot_id", lotID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability rules", err)
	}
	return rules, nil
}

func (s *availabilityService) DeleteRule(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, availabilityerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Availability rule", id)
		}
		if errors.Is(err, availabilityerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid availability rule ID format")
		}
		s.cfg.Log.Error("Failed to delete availability rule", "id", id, "error", err)
		return apperrors.Internal("Failed to delete availability rule", err)
	}

	s.cfg.Log.Info("Availability rule deleted", "id", id)
	return nil
}

// Offerable reports whether a window can be offered to a client: it lies inside one
// OPEN rule (or the lot has no OPEN rules), intersects no BLOCKED rule, and does not
// conflict with a scheduled showing. Touching windows never count as intersecting.
func (s *availabilityService) Offerable(ctx context.Context, lotID string, start, end time.Time) (*model.Offerability, error) {
	start, end = start.UTC().Truncate(time.Second), end.UTC().Truncate(time.Second)
	if !overlap.ValidRange(start, end) {
		return nil, apperrors.InvalidRange("end_time must be after start_time")
	}
	if _, err := s.lots.GetByID(ctx, lotID); err != nil {
		return nil, err
	}

	rules, err := s.repo.FindByLot(ctx, lotID, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to load availability rules", "lot_id", lotID, "error", err)
		return nil, apperrors.Internal("Failed to load availability rules", err)
	}

	result := &model.Offerability{}
	hasOpenRules := false
	for _, rule := range rules {
		switch rule.Kind {
		case model.AvailabilityOpen:
			hasOpenRules = true
			if !rule.StartTime.After(start) && !rule.EndTime.Before(end) {
				result.WithinOpen = true
			}
		case model.AvailabilityBlocked:
			if overlap.Conflicts(rule.StartTime, rule.EndTime, start, end) {
				result.Blocked = true
			}
		}
	}
	if !hasOpenRules {
		// FindByLot only returns rules near the window; check the whole lot before
		// treating it as open by default.
		all, err := s.repo.FindByLot(ctx, lotID, time.Time{}, time.Time{})
		if err != nil {
			return nil, apperrors.Internal("Failed to load availability rules", err)
		}
		result.WithinOpen = !containsKind(all, model.AvailabilityOpen)
	}

	result.HasConflict, err = s.conflicts.HasConflict(ctx, lotID, start, end, "")
	if err != nil {
		return nil, err
	}

	switch {
	case !result.WithinOpen:
		result.Reason = "window is outside the lot's open hours"
	case result.Blocked:
		result.Reason = "window intersects a blocked period"
	case result.HasConflict:
		result.Reason = "window conflicts with a scheduled showing"
	default:
		result.Offerable = true
	}
	return result, nil
}

func containsKind(rules []*model.AvailabilityRule, kind model.AvailabilityKind) bool {
	for _, r := range rules {
		if r.Kind == kind {
			return true
		}
	}
	return false
}
