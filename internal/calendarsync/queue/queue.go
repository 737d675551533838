package queue

import (
	"context"
	"showings/pkg/model"
)

// Handler runs one sync task. Workers log the returned error; tasks are not retried.
type Handler func(ctx context.Context, task model.SyncTask) error

// Queue carries sync tasks from the showing lifecycle to the synchronizer. Dispatch must
// return without waiting on the external calendar.
type Queue interface {
	Dispatch(ctx context.Context, task model.SyncTask) error
	// DispatchWait enqueues like Dispatch but waits for room instead of failing on a
	// full queue. Used by bulk callers such as reconcile.
	DispatchWait(ctx context.Context, task model.SyncTask) error
	Close(ctx context.Context) error
}
