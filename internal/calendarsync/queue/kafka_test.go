package queue

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"showings/pkg/kafka"
	"showings/pkg/logger"
	"showings/pkg/middleware"
	"showings/pkg/model"
)

type recordingPublisher struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (p *recordingPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestKafkaQueue_Dispatch(t *testing.T) {
	pub := &recordingPublisher{}
	q := NewKafkaQueue(pub, "showings", logger.Discard())

	task := model.SyncTask{ShowingID: "showing-1", Action: model.SyncDelete}
	var dispatchErr error
	handler := middleware.RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dispatchErr = q.Dispatch(r.Context(), task)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/showings/id/showing-1/cancel", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if dispatchErr != nil {
		t.Fatalf("Dispatch() error = %v", dispatchErr)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Key != "showing-1" {
		t.Errorf("Key = %q, want showing-1", msg.Key)
	}
	if msg.GetEventType() != "calendar.sync.delete" {
		t.Errorf("event type = %q", msg.GetEventType())
	}
	if msg.GetCorrelationID() != "req-42" {
		t.Errorf("correlation id = %q", msg.GetCorrelationID())
	}

	var decoded model.SyncTask
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if decoded.ShowingID != "showing-1" || decoded.Action != model.SyncDelete || decoded.EnqueuedAt.IsZero() {
		t.Errorf("decoded task = %+v", decoded)
	}

	if err := q.Close(context.Background()); err != nil || !pub.closed {
		t.Errorf("Close() error = %v, closed = %v", err, pub.closed)
	}
}

func TestKafkaQueue_PublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	q := NewKafkaQueue(pub, "showings", logger.Discard())

	if err := q.Dispatch(context.Background(), model.SyncTask{ShowingID: "s", Action: model.SyncCreate}); err == nil {
		t.Error("expected publish error to be returned")
	}
}

func TestKafkaHandler(t *testing.T) {
	valid, err := kafka.NewMessage().
		WithKey("showing-1").
		WithValue(model.SyncTask{ShowingID: "showing-1", Action: model.SyncCreate}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		msg       kafka.Message
		handleErr error
		wantErr   bool
		wantCalls int
	}{
		{name: "runs task", msg: valid, wantCalls: 1},
		{name: "sync failure is not redelivered", msg: valid, handleErr: errors.New("calendar down"), wantCalls: 1},
		{name: "undecodable payload", msg: kafka.Message{Key: "x", Value: []byte("{")}, wantErr: true},
		{name: "missing showing id", msg: kafka.Message{Key: "x", Value: []byte(`{"action":"create"}`)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			handler := NewKafkaHandler(func(ctx context.Context, task model.SyncTask) error {
				calls++
				if _, ok := ctx.Deadline(); !ok {
					t.Error("task context has no deadline")
				}
				return tt.handleErr
			}, time.Second, logger.Discard())

			err := handler(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
				t.Errorf("error %v should be permanent", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestKafkaQueue_NoRequestIDLeavesCorrelationEmpty(t *testing.T) {
	pub := &recordingPublisher{}
	q := NewKafkaQueue(pub, "calendar-reconcile", logger.Discard())

	if err := q.DispatchWait(context.Background(), model.SyncTask{ShowingID: "showing-1", Action: model.SyncUpdate}); err != nil {
		t.Fatalf("DispatchWait() error = %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	if _, ok := pub.messages[0].GetHeader(kafka.HeaderCorrelationID); ok {
		t.Errorf("unexpected correlation id header %q", pub.messages[0].GetCorrelationID())
	}
}
