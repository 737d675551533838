package repository

import (
	"context"
	"errors"
	"fmt"
	availabilityerrors "showings/internal/availability/errors"
	"showings/pkg/config"
	"showings/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Availability_rules"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *model.AvailabilityRule) error
	FindByID(ctx context.Context, id string) (*model.AvailabilityRule, error)
	// FindByLot returns the rules of a lot that touch [from, to]. Zero bounds are open.
	FindByLot(ctx context.Context, lotID string, from, to time.Time) ([]*model.AvailabilityRule, error)
	Delete(ctx context.Context, id string) error
}

type mongoRuleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRuleRepository(cfg *config.Config) RuleRepository {
	return &mongoRuleRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoRuleRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	rule.ID = ""
	rule.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, rule)
	if err != nil {
		return fmt.Errorf("failed to create availability rule: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rule.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRuleRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityRule, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	var rule model.AvailabilityRule
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&rule); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", availabilityerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find availability rule: %w", err)
	}
	return &rule, nil
}

func (r *mongoRuleRepository) FindByLot(ctx context.Context, lotID string, from, to time.Time) ([]*model.AvailabilityRule, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"lot_id": lotID}
	if !to.IsZero() {
		filter["start_time"] = bson.M{"$lte": to}
	}
	if !from.IsZero() {
		filter["end_time"] = bson.M{"$gte": from}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability rules: %w", err)
	}
	defer cursor.Close(ctx)

	rules := []*model.AvailabilityRule{}
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode availability rules: %w", err)
	}
	return rules, nil
}

func (r *mongoRuleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete availability rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrNotFound, id)
	}
	return nil
}
