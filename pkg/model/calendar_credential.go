package model

import "time"

// CalendarCredential is an owner's delegated access to their external calendar.
// RefreshToken is sealed at rest and never serialized back to API callers.
type CalendarCredential struct {
	OwnerID      string    `json:"owner_id" bson:"_id"`
	RefreshToken string    `json:"-" bson:"refresh_token"`
	AccessToken  string    `json:"-" bson:"access_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty" bson:"expiry,omitempty"`
	CalendarID   string    `json:"calendar_id,omitempty" bson:"calendar_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type CalendarCredentialRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,min=10,max=2048"`
	CalendarID   string `json:"calendar_id,omitempty" validate:"omitempty,max=256"`
}
