package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// showingLockRepository maintains one document per lot in Showing_locks. Writing it
// inside a transaction makes concurrent transactions on the same lot collide with a
// WriteConflict, which the driver retries after the winner commits.
type showingLockRepository struct {
	collection *mongo.Collection
}

func newShowingLockRepository(db *mongo.Database) *showingLockRepository {
	return &showingLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

func (r *showingLockRepository) Bump(ctx context.Context, lotID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": lotID},
		bson.M{
			"$inc": bson.M{"version": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to lock lot %s: %w", lotID, err)
	}
	return nil
}
