package model

import "time"

type ShowingStatus string

const (
	StatusScheduled ShowingStatus = "SCHEDULED"
	StatusCanceled  ShowingStatus = "CANCELED"
	StatusCompleted ShowingStatus = "COMPLETED"
)

// allowedTransitions lists every legal status change. Terminal states map to nothing.
var allowedTransitions = map[ShowingStatus][]ShowingStatus{
	StatusScheduled: {StatusCanceled, StatusCompleted},
	StatusCanceled:  {},
	StatusCompleted: {},
}

func (s ShowingStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s ShowingStatus) CanTransitionTo(next ShowingStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ShowingStatus) IsTerminal() bool {
	return s.IsValid() && len(allowedTransitions[s]) == 0
}

func (s ShowingStatus) String() string {
	return string(s)
}

type Showing struct {
	ID              string        `json:"id,omitempty" bson:"_id,omitempty" db:"id"`
	LotID           string        `json:"lot_id" bson:"lot_id" db:"lot_id" validate:"required,max=64"`
	StartTime       time.Time     `json:"start_time" bson:"start_time" db:"start_time" validate:"required"`
	EndTime         time.Time     `json:"end_time" bson:"end_time" db:"end_time" validate:"required,gtfield=StartTime"`
	Status          ShowingStatus `json:"status" bson:"status" db:"status" validate:"required,oneof=SCHEDULED CANCELED COMPLETED"`
	ClientName      string        `json:"client_name" bson:"client_name" db:"client_name" validate:"required,min=2,max=100"`
	ClientEmail     string        `json:"client_email,omitempty" bson:"client_email,omitempty" db:"client_email" validate:"omitempty,email,max=254"`
	ClientPhone     string        `json:"client_phone,omitempty" bson:"client_phone,omitempty" db:"client_phone" validate:"omitempty,e164"`
	Notes           string        `json:"notes,omitempty" bson:"notes,omitempty" db:"notes" validate:"omitempty,max=1000"`
	CalendarEventID string        `json:"calendar_event_id,omitempty" bson:"calendar_event_id,omitempty" db:"calendar_event_id"`
	CalendarLink    string        `json:"calendar_link,omitempty" bson:"calendar_link,omitempty" db:"calendar_link"`
	SyncError       bool          `json:"sync_error" bson:"sync_error" db:"sync_error"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at" db:"updated_at"`
}

func (s *Showing) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// ShowingRequest is the body of a new showing request. Status and calendar fields are
// owned by the service and cannot be supplied by callers.
type ShowingRequest struct {
	LotID       string    `json:"lot_id" validate:"required,max=64"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	ClientName  string    `json:"client_name" validate:"required,min=2,max=100"`
	ClientEmail string    `json:"client_email,omitempty" validate:"omitempty,email,max=254"`
	ClientPhone string    `json:"client_phone,omitempty" validate:"omitempty,e164"`
	Notes       string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type RescheduleRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// ShowingFilter narrows list queries. Empty fields match everything.
type ShowingFilter struct {
	LotID  string
	Status ShowingStatus
	From   *time.Time
	To     *time.Time
}
