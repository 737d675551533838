package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	calendarsyncerrors "showings/internal/calendarsync/errors"
	"showings/pkg/logger"
	"showings/pkg/model"

	"github.com/cespare/xxhash/v2"
)

// MemoryQueue is a bounded queue split into shards, one worker per shard. Tasks for the
// same showing always hash to the same shard so they run in dispatch order.
type MemoryQueue struct {
	shards  []chan model.SyncTask
	handle  Handler
	timeout time.Duration
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewMemoryQueue(workers, capacity int, timeout time.Duration, handle Handler, log *logger.Logger) *MemoryQueue {
	if workers <= 0 {
		workers = 1
	}
	perShard := capacity / workers
	if perShard <= 0 {
		perShard = 1
	}

	q := &MemoryQueue{
		shards:  make([]chan model.SyncTask, workers),
		handle:  handle,
		timeout: timeout,
		log:     log.Component("calendar-sync-queue"),
	}
	for i := range q.shards {
		q.shards[i] = make(chan model.SyncTask, perShard)
	}
	return q
}

// Start launches the shard workers. They run until Close drains the queue.
func (q *MemoryQueue) Start() {
	for i, shard := range q.shards {
		q.wg.Add(1)
		go q.work(i, shard)
	}
	q.log.Info("Calendar sync workers started", "workers", len(q.shards))
}

func (q *MemoryQueue) Dispatch(ctx context.Context, task model.SyncTask) error {
	return q.enqueue(ctx, task, false)
}

// DispatchWait blocks until the task's shard has room or ctx ends.
func (q *MemoryQueue) DispatchWait(ctx context.Context, task model.SyncTask) error {
	return q.enqueue(ctx, task, true)
}

func (q *MemoryQueue) enqueue(ctx context.Context, task model.SyncTask, wait bool) error {
	if task.ShowingID == "" {
		return fmt.Errorf("sync task without showing id")
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return calendarsyncerrors.ErrQueueClosed
	}

	shard := q.shards[q.shardFor(task.ShowingID)]
	if wait {
		select {
		case shard <- task:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case shard <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return calendarsyncerrors.ErrQueueFull
	}
}

func (q *MemoryQueue) shardFor(showingID string) int {
	return int(xxhash.Sum64String(showingID) % uint64(len(q.shards)))
}

func (q *MemoryQueue) work(shard int, tasks <-chan model.SyncTask) {
	defer q.wg.Done()
	for task := range tasks {
		q.run(shard, task)
	}
}

func (q *MemoryQueue) run(shard int, task model.SyncTask) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("Calendar sync task panicked", "shard", shard, "showing_id", task.ShowingID, "action", task.Action, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	if err := q.handle(ctx, task); err != nil {
		q.log.Warn("Calendar sync task failed",
			"shard", shard,
			"showing_id", task.ShowingID,
			"action", task.Action,
			"queued_for", time.Since(task.EnqueuedAt),
			"error", err,
		)
	}
}

func (q *MemoryQueue) Len() int {
	n := 0
	for _, shard := range q.shards {
		n += len(shard)
	}
	return n
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to expire.
func (q *MemoryQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for _, shard := range q.shards {
		close(shard)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("Calendar sync queue drained")
		return nil
	case <-ctx.Done():
		q.log.Warn("Calendar sync queue closed with pending tasks", "pending", q.Len())
		return ctx.Err()
	}
}
