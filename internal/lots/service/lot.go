package service

import (
	"context"
	"errors"
	lotserrors "showings/internal/lots/errors"
	"showings/internal/lots/repository"
	"showings/internal/lots/validator"
	"showings/pkg/coalesce"
	"showings/pkg/config"
	apperrors "showings/pkg/errors"
	"showings/pkg/model"
	"showings/pkg/sanitizer"
	"sync"
)

type LotService interface {
	Create(ctx context.Context, lot *model.Lot) error
	GetByID(ctx context.Context, id string) (*model.Lot, error)
	GetAll(ctx context.Context, parkID string, limit int, offset int64) ([]*model.Lot, int64, error)
}

type lotService struct {
	repo      repository.LotRepository
	validator *validator.LotValidator
	cfg       *config.Config
	byID      *coalesce.Group[*model.Lot]
}

func NewLotService(repo repository.LotRepository, validator *validator.LotValidator, cfg *config.Config) LotService {
	return &lotService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		byID:      coalesce.New[*model.Lot](cfg.ReadTimeout),
	}
}

func (s *lotService) Create(ctx context.Context, lot *model.Lot) error {
	lot.Name = sanitizer.NormalizeName(lot.Name)
	lot.Address = sanitizer.TrimAndNormalize(lot.Address)
	lot.ParkID = sanitizer.TrimAndNormalize(lot.ParkID)
	lot.OwnerID = sanitizer.TrimAndNormalize(lot.OwnerID)

	if err := s.validator.Validate(lot); err != nil {
		s.cfg.Log.Warn("Lot validation failed", "name", lot.Name, "error", err)
		return apperrors.Validation("Lot validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, lot); err != nil {
		s.cfg.Log.Error("Failed to create lot", "name", lot.Name, "error", err)
		return apperrors.Internal("Failed to create lot", err)
	}

	s.cfg.Log.Info("Lot created successfully",
		"id", lot.ID,
		"park_id", lot.ParkID,
		"owner_id", lot.OwnerID,
	)
	return nil
}

// GetByID serves the showing request path, so lookups are coalesced and cached. Lots
// are immutable once created.
func (s *lotService) GetByID(ctx context.Context, id string) (*model.Lot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Lot ID cannot be empty")
	}

	lot, err := s.byID.Do(ctx, id, func(ctx context.Context) (*model.Lot, error) {
		return s.repo.FindByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, lotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Lot", id)
		}
		if errors.Is(err, lotserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid lot ID format")
		}
		s.cfg.Log.Error("Failed to get lot by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve lot", err)
	}

	cp := *lot
	return &cp, nil
}

func (s *lotService) GetAll(ctx context.Context, parkID string, limit int, offset int64) ([]*model.Lot, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var lots []*model.Lot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, parkID)
	}()
	go func() {
		defer wg.Done()
		lots, errFind = s.repo.FindAll(ctx, parkID, limit, offset)
	}()
	wg.Wait()

	if err := errors.Join(errCount, errFind); err != nil {
		s.cfg.Log.Error("Failed to list lots", "park_id", parkID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve lots", err)
	}
	return lots, count, nil
}
