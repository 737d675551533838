package calendar

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Event is the calendar-neutral form of a showing.
type Event struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string
	// ExternalID is the showing id, stored as a private extended property.
	ExternalID string
}

type EventRef struct {
	ID   string
	Link string
}

type Calendar interface {
	// EnsureCalendar returns the id of the owner's calendar named name, creating it when
	// missing.
	EnsureCalendar(ctx context.Context, name, timeZone string) (string, error)
	InsertEvent(ctx context.Context, calendarID string, event Event) (EventRef, error)
	// PatchEvent returns ErrEventGone when the event was removed externally.
	PatchEvent(ctx context.Context, calendarID, eventID string, event Event) (EventRef, error)
	// DeleteEvent treats an already removed event as success.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// Factory builds a calendar client that authenticates with the given token source.
type Factory func(ctx context.Context, ts oauth2.TokenSource) (Calendar, error)
