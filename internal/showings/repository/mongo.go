package repository

import (
	"context"
	"errors"
	"fmt"
	showingserrors "showings/internal/showings/errors"
	"showings/pkg/config"
	mongotx "showings/pkg/db/mongo"
	"showings/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoShowingRepository struct {
	cfg        *config.Config
	client     *mongo.Client
	collection *mongo.Collection
	locks      *showingLockRepository
	txManager  mongotx.TransactionManager
}

func NewMongoShowingRepository(cfg *config.Config) ShowingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoShowingRepository{
		cfg:        cfg,
		client:     cfg.Client.Mongo,
		collection: db.Collection(CollectionName),
		locks:      newShowingLockRepository(db),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoShowingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, timeout, mongotx.InSession(ctx))
}

func (r *mongoShowingRepository) Create(ctx context.Context, showing *model.Showing) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	showing.ID = ""
	showing.CreatedAt = now()
	showing.UpdatedAt = showing.CreatedAt
	result, err := r.collection.InsertOne(ctx, showing)
	if err != nil {
		return fmt.Errorf("failed to create showing: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		showing.ID = oid.Hex()
	}
	return nil
}

func (r *mongoShowingRepository) FindByID(ctx context.Context, id string) (*model.Showing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	var showing model.Showing
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&showing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, showingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find showing: %w", err)
	}

	return &showing, nil
}

func (r *mongoShowingRepository) Find(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find showings: %w", err)
	}
	defer cursor.Close(ctx)

	showings := []*model.Showing{}
	if err = cursor.All(ctx, &showings); err != nil {
		return nil, fmt.Errorf("failed to decode showings: %w", err)
	}

	return showings, nil
}

func (r *mongoShowingRepository) Count(ctx context.Context, filter model.ShowingFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count showings: %w", err)
	}
	return count, nil
}

func (r *mongoShowingRepository) FindScheduledInRange(ctx context.Context, lotID string, start, end time.Time) ([]*model.Showing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"lot_id":     lotID,
		"status":     model.StatusScheduled,
		"start_time": bson.M{"$lte": end},
		"end_time":   bson.M{"$gte": start},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find scheduled showings: %w", err)
	}
	defer cursor.Close(ctx)

	var showings []*model.Showing
	if err = cursor.All(ctx, &showings); err != nil {
		return nil, fmt.Errorf("failed to decode showings: %w", err)
	}
	return showings, nil
}

func (r *mongoShowingRepository) UpdateStatus(ctx context.Context, id string, from, to model.ShowingStatus) (*model.Showing, error) {
	return r.compareAndSet(ctx, id, from, bson.M{
		"status":     to,
		"updated_at": now(),
	})
}

func (r *mongoShowingRepository) UpdateTimes(ctx context.Context, id string, start, end time.Time) (*model.Showing, error) {
	return r.compareAndSet(ctx, id, model.StatusScheduled, bson.M{
		"start_time": start,
		"end_time":   end,
		"updated_at": now(),
	})
}

func (r *mongoShowingRepository) compareAndSet(ctx context.Context, id string, expected model.ShowingStatus, set bson.M) (*model.Showing, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	writeCtx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Showing
	err = r.collection.FindOneAndUpdate(writeCtx,
		bson.M{"_id": objectID, "status": expected},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update showing: %w", err)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, showingserrors.ErrStatusChanged
}

func (r *mongoShowingRepository) SetCalendarEvent(ctx context.Context, id, eventID, link string, onlyIfScheduled bool) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	if onlyIfScheduled {
		filter["status"] = model.StatusScheduled
	}
	update := bson.M{"$set": bson.M{
		"calendar_event_id": eventID,
		"calendar_link":     link,
		"sync_error":        false,
		"updated_at":        now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to set calendar event: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *mongoShowingRepository) ClearCalendarEvent(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$unset": bson.M{"calendar_event_id": "", "calendar_link": ""},
		"$set":   bson.M{"sync_error": false, "updated_at": now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to clear calendar event: %w", err)
	}
	if result.MatchedCount == 0 {
		return showingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoShowingRepository) SetSyncError(ctx context.Context, id string, failed bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"sync_error": failed, "updated_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set sync error: %w", err)
	}
	if result.MatchedCount == 0 {
		return showingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoShowingRepository) FindForReconcile(ctx context.Context, q model.ReconcileQuery) ([]*model.Showing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	clauses := []bson.M{reconcileScopeFilter(q.Scope)}
	if q.After != nil {
		afterID, err := primitive.ObjectIDFromHex(q.After.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, q.After.ID)
		}
		clauses = append(clauses, bson.M{"$or": []bson.M{
			{"start_time": bson.M{"$gt": q.After.StartTime}},
			{"start_time": q.After.StartTime, "_id": bson.M{"$gt": afterID}},
		}})
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"$and": clauses}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find showings for reconcile: %w", err)
	}
	defer cursor.Close(ctx)

	var showings []*model.Showing
	if err = cursor.All(ctx, &showings); err != nil {
		return nil, fmt.Errorf("failed to decode showings: %w", err)
	}
	return showings, nil
}

func reconcileScopeFilter(scope model.ReconcileScope) bson.M {
	hasEvent := bson.M{"calendar_event_id": bson.M{"$exists": true, "$ne": ""}}
	if scope == model.ReconcileFailed {
		return bson.M{
			"sync_error": true,
			"$or": []bson.M{
				{"status": model.StatusScheduled},
				hasEvent,
			},
		}
	}
	return bson.M{
		"status":            model.StatusScheduled,
		"sync_error":        bson.M{"$ne": true},
		"calendar_event_id": hasEvent["calendar_event_id"],
	}
}

func (r *mongoShowingRepository) LockLot(ctx context.Context, lotID string) error {
	if !mongotx.InSession(ctx) {
		return errors.New("LockLot must run inside a transaction")
	}
	return r.locks.Bump(ctx, lotID)
}

func (r *mongoShowingRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoShowingRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func buildFilter(f model.ShowingFilter) bson.M {
	filter := bson.M{}
	if f.LotID != "" {
		filter["lot_id"] = f.LotID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.From != nil {
		filter["end_time"] = bson.M{"$gt": *f.From}
	}
	if f.To != nil {
		filter["start_time"] = bson.M{"$lt": *f.To}
	}
	return filter
}
