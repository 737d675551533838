package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"showings/internal/migrations/mongo/validators"
	"showings/pkg/logger"
)

var (
	ShowingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "lot_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "start_time", Value: 1}}},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "start_time", Value: 1}},
			Options: options.Index().
				SetName("reconcile").
				SetPartialFilterExpression(bson.M{"status": "SCHEDULED"}),
		},
		{
			Keys: bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().
				SetName("reconcile_failed").
				SetPartialFilterExpression(bson.M{"sync_error": true}),
		},
	}

	LotsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "park_id", Value: 1}, {Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	AvailabilityRulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "lot_id", Value: 1},
			{Key: "kind", Value: 1},
			{Key: "start_time", Value: 1},
		}},
	}

	CalendarCredentialsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection the service writes. Showing_locks carries no
// validator; its documents only hold a version counter.
var Collections = map[string]collectionDef{
	"Showings":             {Indexes: ShowingsIndexes, Validator: validators.ShowingValidator},
	"Lots":                 {Indexes: LotsIndexes, Validator: validators.LotValidator},
	"Availability_rules":   {Indexes: AvailabilityRulesIndexes, Validator: validators.AvailabilityRuleValidator},
	"Calendar_credentials": {Indexes: CalendarCredentialsIndexes, Validator: validators.CalendarCredentialValidator},
	"Showing_locks":        {},
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range Collections {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All Mongo migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
