package repository

import (
	"context"
	"showings/pkg/model"
	"time"
)

const (
	CollectionName     = "Showings"
	LockCollectionName = "Showing_locks"
	TableName          = "showings"
)

type ShowingRepository interface {
	Create(ctx context.Context, showing *model.Showing) error
	FindByID(ctx context.Context, id string) (*model.Showing, error)
	Find(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, error)
	Count(ctx context.Context, filter model.ShowingFilter) (int64, error)

	// FindScheduledInRange returns SCHEDULED showings of a lot whose window touches or
	// intersects [start, end]. Callers apply the strict overlap predicate on the result.
	FindScheduledInRange(ctx context.Context, lotID string, start, end time.Time) ([]*model.Showing, error)

	// UpdateStatus moves a showing from one status to another atomically. When the stored
	// status is not from, it returns the current showing together with ErrStatusChanged.
	UpdateStatus(ctx context.Context, id string, from, to model.ShowingStatus) (*model.Showing, error)

	// UpdateTimes rewrites the window of a SCHEDULED showing. Non-scheduled showings are
	// returned unchanged with ErrStatusChanged.
	UpdateTimes(ctx context.Context, id string, start, end time.Time) (*model.Showing, error)

	// SetCalendarEvent records the external event and clears the sync error flag. With
	// onlyIfScheduled it only applies while the showing is still SCHEDULED and reports
	// whether it did.
	SetCalendarEvent(ctx context.Context, id, eventID, link string, onlyIfScheduled bool) (bool, error)
	ClearCalendarEvent(ctx context.Context, id string) error
	SetSyncError(ctx context.Context, id string, failed bool) error

	// FindForReconcile returns the page of q.Scope that follows q.After in (start_time, id)
	// order. A page shorter than q.Limit is the last one.
	FindForReconcile(ctx context.Context, q model.ReconcileQuery) ([]*model.Showing, error)

	// LockLot serializes every transaction that writes showings of lotID. It must be
	// called inside ExecuteTransaction.
	LockLot(ctx context.Context, lotID string) error

	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}

func withTimeout(ctx context.Context, timeout time.Duration, inTx bool) (context.Context, context.CancelFunc) {
	if inTx {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
