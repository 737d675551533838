package queue

import (
	"context"
	"fmt"
	"time"

	"showings/pkg/kafka"
	"showings/pkg/logger"
	"showings/pkg/middleware"
	"showings/pkg/model"
)

const (
	EventTypePrefix = "calendar.sync."
	SchemaVersion   = "1"
)

// Publisher is the subset of kafka.Producer used to enqueue tasks.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaQueue publishes tasks keyed by showing id, so one partition sees every task of a
// showing in order. Tasks are run by a separate consumer process.
type KafkaQueue struct {
	publisher Publisher
	source    string
	log       *logger.Logger
}

func NewKafkaQueue(publisher Publisher, source string, log *logger.Logger) *KafkaQueue {
	return &KafkaQueue{
		publisher: publisher,
		source:    source,
		log:       log.Component("calendar-sync-kafka"),
	}
}

func (q *KafkaQueue) Dispatch(ctx context.Context, task model.SyncTask) error {
	if task.ShowingID == "" {
		return fmt.Errorf("sync task without showing id")
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	msg, err := kafka.NewMessage().
		WithKey(task.ShowingID).
		WithValue(task).
		WithEventType(EventTypePrefix + string(task.Action)).
		WithSchemaVersion(SchemaVersion).
		WithSource(q.source).
		WithCorrelationID(middleware.RequestID(ctx)).
		Build()
	if err != nil {
		return err
	}

	return q.publisher.Publish(ctx, msg)
}

// DispatchWait is Dispatch: publishing already waits for the broker.
func (q *KafkaQueue) DispatchWait(ctx context.Context, task model.SyncTask) error {
	return q.Dispatch(ctx, task)
}

func (q *KafkaQueue) Close(context.Context) error {
	return q.publisher.Close()
}

// NewKafkaHandler adapts a Handler to consume tasks published by KafkaQueue. Sync failures
// are already recorded on the showing, so only undecodable messages are returned as errors
// and routed to the DLQ.
func NewKafkaHandler(handle Handler, timeout time.Duration, log *logger.Logger) kafka.MessageHandler {
	log = log.Component("calendar-sync-consumer")
	return func(ctx context.Context, msg kafka.Message) error {
		var task model.SyncTask
		if err := msg.DecodeValue(&task); err != nil {
			return err
		}
		if task.ShowingID == "" {
			return kafka.NewPermanentError("sync task without showing id", kafka.ErrInvalidMessage)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := handle(ctx, task); err != nil {
			log.Warn("Calendar sync task failed",
				"showing_id", task.ShowingID,
				"action", task.Action,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"correlation_id", msg.GetCorrelationID(),
				"error", err,
			)
		}
		return nil
	}
}
