package model

import "time"

type SyncAction string

const (
	SyncCreate SyncAction = "create"
	SyncUpdate SyncAction = "update"
	SyncDelete SyncAction = "delete"
)

// SyncTask asks the calendar synchronizer to mirror one showing. It carries only the id;
// workers read the current showing when the task runs.
type SyncTask struct {
	ShowingID  string     `json:"showing_id"`
	Action     SyncAction `json:"action"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// ReconcileScope selects which showings a reconcile page is drawn from.
type ReconcileScope string

const (
	// ReconcileFailed covers showings with a recorded sync error: SCHEDULED showings, and
	// showings that left SCHEDULED while their event is still attached.
	ReconcileFailed ReconcileScope = "failed"
	// ReconcileSynced covers SCHEDULED showings with an event and no sync error.
	ReconcileSynced ReconcileScope = "synced"
)

// ReconcileCursor is the (start_time, id) key of the last showing of a page.
type ReconcileCursor struct {
	StartTime time.Time
	ID        string
}

// ReconcileQuery asks for the next page of a scope, ordered by start time then id.
type ReconcileQuery struct {
	Scope ReconcileScope
	After *ReconcileCursor
	Limit int
}
