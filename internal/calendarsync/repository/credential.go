package repository

import (
	"context"
	"errors"
	"fmt"
	calendarsyncerrors "showings/internal/calendarsync/errors"
	"showings/pkg/config"
	"showings/pkg/model"
	"showings/pkg/sealer"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/oauth2"
)

const (
	CollectionName = "Calendar_credentials"
)

// CredentialRepository stores owner calendar credentials. Tokens are sealed before they
// are written and opened on read, so callers only ever see plaintext.
type CredentialRepository interface {
	Upsert(ctx context.Context, cred *model.CalendarCredential) error
	// FindByOwner returns ErrCredentialMissing when the owner has no credential.
	FindByOwner(ctx context.Context, ownerID string) (*model.CalendarCredential, error)
	// SaveToken writes back a refreshed token. A rotated refresh token replaces the stored one.
	SaveToken(ctx context.Context, ownerID string, token *oauth2.Token) error
	Delete(ctx context.Context, ownerID string) error
}

type mongoCredentialRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	sealer     *sealer.Sealer
}

func NewMongoCredentialRepository(cfg *config.Config, s *sealer.Sealer) CredentialRepository {
	return &mongoCredentialRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
		sealer:     s,
	}
}

func (r *mongoCredentialRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoCredentialRepository) Upsert(ctx context.Context, cred *model.CalendarCredential) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	sealedRefresh, err := r.sealer.Seal(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to seal refresh token: %w", err)
	}

	cred.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"refresh_token": sealedRefresh,
			"calendar_id":   cred.CalendarID,
			"updated_at":    cred.UpdatedAt,
		},
		"$unset": bson.M{"access_token": "", "expiry": ""},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": cred.OwnerID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store calendar credential: %w", err)
	}
	return nil
}

func (r *mongoCredentialRepository) FindByOwner(ctx context.Context, ownerID string) (*model.CalendarCredential, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var cred model.CalendarCredential
	err := r.collection.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&cred)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", calendarsyncerrors.ErrCredentialMissing, ownerID)
		}
		return nil, fmt.Errorf("failed to find calendar credential: %w", err)
	}

	if cred.RefreshToken, err = r.sealer.Open(cred.RefreshToken); err != nil {
		return nil, fmt.Errorf("%w: open refresh token for owner %s: %v", calendarsyncerrors.ErrCredentialRevoked, ownerID, err)
	}
	if cred.AccessToken != "" {
		if cred.AccessToken, err = r.sealer.Open(cred.AccessToken); err != nil {
			// Unreadable access tokens are dropped and refreshed on first use.
			cred.AccessToken = ""
			cred.Expiry = time.Time{}
		}
	}
	return &cred, nil
}

func (r *mongoCredentialRepository) SaveToken(ctx context.Context, ownerID string, token *oauth2.Token) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	sealedAccess, err := r.sealer.Seal(token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}
	set := bson.M{
		"access_token": sealedAccess,
		"expiry":       token.Expiry.UTC(),
		"updated_at":   time.Now().UTC().Truncate(time.Millisecond),
	}
	if token.RefreshToken != "" {
		sealedRefresh, err := r.sealer.Seal(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to seal refresh token: %w", err)
		}
		set["refresh_token"] = sealedRefresh
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": ownerID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", calendarsyncerrors.ErrCredentialMissing, ownerID)
	}
	return nil
}

func (r *mongoCredentialRepository) Delete(ctx context.Context, ownerID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete calendar credential: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", calendarsyncerrors.ErrCredentialMissing, ownerID)
	}
	return nil
}
