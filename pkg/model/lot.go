package model

import "time"

type Lot struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ParkID    string    `json:"park_id" bson:"park_id" validate:"required,max=64"`
	OwnerID   string    `json:"owner_id" bson:"owner_id" validate:"required,max=64"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Address   string    `json:"address,omitempty" bson:"address,omitempty" validate:"omitempty,max=300"`
	TimeZone  string    `json:"time_zone,omitempty" bson:"time_zone,omitempty" validate:"omitempty,timezone"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
