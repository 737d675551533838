package calendarsync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"showings/internal/calendarsync/queue"
	"showings/pkg/config"
	"showings/pkg/logger"
	"showings/pkg/model"
)

func TestNew_RejectsBadSealKey(t *testing.T) {
	cfg := &config.Config{CredentialSealKey: "not-base64!", Log: logger.Discard()}
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatal("expected an error for an invalid seal key")
	}
}

func TestNewQueue_MemoryRunsTasksInProcess(t *testing.T) {
	cfg := &config.Config{
		CalendarSyncQueue:     config.QueueMemory,
		CalendarSyncWorkers:   2,
		CalendarSyncQueueSize: 8,
		CalendarSyncTimeout:   time.Second,
		Log:                   logger.Discard(),
	}

	var handled atomic.Int32
	q, err := NewQueue(cfg, func(ctx context.Context, task model.SyncTask) error {
		handled.Add(1)
		return nil
	}, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := q.(*queue.MemoryQueue); !ok {
		t.Fatalf("expected a memory queue, got %T", q)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Dispatch(context.Background(), model.SyncTask{ShowingID: id, Action: model.SyncCreate}); err != nil {
			t.Fatalf("dispatch %s: %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	CloseQueue(ctx, cfg, q)

	if got := handled.Load(); got != 3 {
		t.Errorf("handled %d tasks, want 3", got)
	}
}
