package service

import (
	"context"
	"errors"
	calendarsyncerrors "showings/internal/calendarsync/errors"
	"showings/internal/calendarsync/repository"
	"showings/pkg/config"
	apperrors "showings/pkg/errors"
	"showings/pkg/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CredentialService interface {
	Save(ctx context.Context, ownerID string, req *model.CalendarCredentialRequest) (*model.CalendarCredential, error)
	Remove(ctx context.Context, ownerID string) error
}

// OwnerCache is told when an owner's credential changes.
type OwnerCache interface {
	ForgetOwner(ownerID string)
}

type credentialService struct {
	repo     repository.CredentialRepository
	tokens   repository.TokenCache
	owners   OwnerCache
	validate *validator.Validate
	cfg      *config.Config
}

func NewCredentialService(
	repo repository.CredentialRepository,
	tokens repository.TokenCache,
	owners OwnerCache,
	cfg *config.Config,
) CredentialService {
	if tokens == nil {
		tokens = repository.NoopTokenCache()
	}
	return &credentialService{
		repo:     repo,
		tokens:   tokens,
		owners:   owners,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (s *credentialService) Save(ctx context.Context, ownerID string, req *model.CalendarCredentialRequest) (*model.CalendarCredential, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" || len(ownerID) > 64 {
		return nil, apperrors.InvalidInput("Owner ID is required and must be at most 64 characters")
	}

	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	req.CalendarID = strings.TrimSpace(req.CalendarID)
	if err := s.validate.Struct(req); err != nil {
		s.cfg.Log.Warn("Calendar credential validation failed", "owner_id", ownerID, "error", err)
		return nil, apperrors.Validation("Calendar credential validation failed", map[string]any{"error": err.Error()})
	}

	cred := &model.CalendarCredential{
		OwnerID:      ownerID,
		RefreshToken: req.RefreshToken,
		CalendarID:   req.CalendarID,
	}
	if err := s.repo.Upsert(ctx, cred); err != nil {
		s.cfg.Log.Error("Failed to store calendar credential", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to store calendar credential", err)
	}

	s.tokens.Delete(ctx, ownerID)
	if s.owners != nil {
		s.owners.ForgetOwner(ownerID)
	}

	s.cfg.Log.Info("Calendar credential stored", "owner_id", ownerID, "calendar_id_set", cred.CalendarID != "")
	return cred, nil
}

func (s *credentialService) Remove(ctx context.Context, ownerID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return apperrors.InvalidInput("Owner ID is required")
	}

	if err := s.repo.Delete(ctx, ownerID); err != nil {
		if errors.Is(err, calendarsyncerrors.ErrCredentialMissing) {
			return apperrors.NotFoundWithID("Calendar credential", ownerID)
		}
		s.cfg.Log.Error("Failed to delete calendar credential", "owner_id", ownerID, "error", err)
		return apperrors.Internal("Failed to delete calendar credential", err)
	}

	s.tokens.Delete(ctx, ownerID)
	if s.owners != nil {
		s.owners.ForgetOwner(ownerID)
	}

	s.cfg.Log.Info("Calendar credential removed", "owner_id", ownerID)
	return nil
}
