package service

import (
	"context"
	"errors"
	"time"

	apperrors "showings/pkg/errors"
	"showings/pkg/logger"
	"showings/pkg/model"
)

const DefaultReconcileBatch = 1000

// Dispatcher enqueues reconcile tasks, waiting for queue room instead of failing.
type Dispatcher interface {
	DispatchWait(ctx context.Context, task model.SyncTask) error
}

type ReconcileResult struct {
	Scanned  int `json:"scanned"`
	Enqueued int `json:"enqueued"`
	Failed   int `json:"failed"`
	// Truncated is set when ctx ended before every page was dispatched.
	Truncated bool `json:"truncated"`
}

// Reconciler re-enqueues showings whose calendar state may be stale. Showings with a
// recorded sync error go first; then every SCHEDULED showing that carries an event.
// SCHEDULED showings get an update task, which patches or recreates the event; showings
// that left SCHEDULED with an event still attached get a delete task.
type Reconciler struct {
	showings   ShowingStore
	dispatcher Dispatcher
	batch      int
	log        *logger.Logger
}

func NewReconciler(showings ShowingStore, dispatcher Dispatcher, batch int, log *logger.Logger) *Reconciler {
	if batch <= 0 {
		batch = DefaultReconcileBatch
	}
	return &Reconciler{
		showings:   showings,
		dispatcher: dispatcher,
		batch:      batch,
		log:        log.Component("calendar-reconcile"),
	}
}

func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	for _, scope := range []model.ReconcileScope{model.ReconcileFailed, model.ReconcileSynced} {
		if err := r.reconcileScope(ctx, scope, result); err != nil {
			if ctx.Err() == nil {
				r.log.Error("Failed to list showings for reconcile", "scope", scope, "error", err)
				return nil, apperrors.Internal("Failed to list showings for reconcile", err)
			}
			result.Truncated = true
			r.log.Warn("Calendar reconcile stopped early", "scope", scope, "error", ctx.Err())
			break
		}
	}

	r.log.Info("Calendar reconcile dispatched",
		"scanned", result.Scanned,
		"enqueued", result.Enqueued,
		"failed", result.Failed,
		"truncated", result.Truncated,
	)
	return result, nil
}

func (r *Reconciler) reconcileScope(ctx context.Context, scope model.ReconcileScope, result *ReconcileResult) error {
	query := model.ReconcileQuery{Scope: scope, Limit: r.batch}
	for {
		page, err := r.showings.FindForReconcile(ctx, query)
		if err != nil {
			return err
		}

		result.Scanned += len(page)
		now := time.Now().UTC()
		for _, showing := range page {
			task := model.SyncTask{ShowingID: showing.ID, Action: model.SyncUpdate, EnqueuedAt: now}
			if showing.Status != model.StatusScheduled {
				task.Action = model.SyncDelete
			}

			if err := r.dispatcher.DispatchWait(ctx, task); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				result.Failed++
				r.log.Warn("Failed to enqueue reconcile task", "id", showing.ID, "action", task.Action, "error", err)
				continue
			}
			result.Enqueued++
		}

		if len(page) < r.batch {
			return nil
		}
		last := page[len(page)-1]
		query.After = &model.ReconcileCursor{StartTime: last.StartTime, ID: last.ID}
	}
}
