package model

import "time"

type AvailabilityKind string

const (
	AvailabilityOpen    AvailabilityKind = "OPEN"
	AvailabilityBlocked AvailabilityKind = "BLOCKED"
)

type AvailabilityRule struct {
	ID        string           `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	LotID     string           `json:"lot_id" bson:"lot_id" validate:"required,max=64"`
	StartTime time.Time        `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time        `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Kind      AvailabilityKind `json:"kind" bson:"kind" validate:"required,oneof=OPEN BLOCKED"`
	Reason    string           `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=300"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
}

// Offerability is the answer to "can this window be offered to a client".
type Offerability struct {
	Offerable   bool   `json:"offerable"`
	WithinOpen  bool   `json:"within_open"`
	Blocked     bool   `json:"blocked"`
	HasConflict bool   `json:"has_conflict"`
	Reason      string `json:"reason,omitempty"`
}
