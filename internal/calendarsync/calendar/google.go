package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	calendarsyncerrors "showings/internal/calendarsync/errors"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const showingIDProperty = "showing_id"

type googleCalendar struct {
	svc *gcal.Service
}

// NewGoogleFactory returns a Factory backed by the Google Calendar v3 API. Extra options
// (endpoint, http client) are appended after the token source.
func NewGoogleFactory(opts ...option.ClientOption) Factory {
	return func(ctx context.Context, ts oauth2.TokenSource) (Calendar, error) {
		all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
		svc, err := gcal.NewService(ctx, all...)
		if err != nil {
			return nil, fmt.Errorf("create calendar service: %w", err)
		}
		return &googleCalendar{svc: svc}, nil
	}
}

func (g *googleCalendar) EnsureCalendar(ctx context.Context, name, timeZone string) (string, error) {
	var found string
	err := g.svc.CalendarList.List().
		MinAccessRole("writer").
		Pages(ctx, func(list *gcal.CalendarList) error {
			for _, entry := range list.Items {
				if entry.Summary == name && !entry.Deleted {
					found = entry.Id
					return errStopPaging
				}
			}
			return nil
		})
	if err != nil && !errors.Is(err, errStopPaging) {
		return "", fmt.Errorf("list calendars: %w", err)
	}
	if found != "" {
		return found, nil
	}

	created, err := g.svc.Calendars.Insert(&gcal.Calendar{
		Summary:  name,
		TimeZone: timeZone,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create calendar %q: %w", name, err)
	}
	return created.Id, nil
}

var errStopPaging = errors.New("stop paging")

func (g *googleCalendar) InsertEvent(ctx context.Context, calendarID string, event Event) (EventRef, error) {
	created, err := g.svc.Events.Insert(calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return EventRef{}, fmt.Errorf("insert event: %w", err)
	}
	return EventRef{ID: created.Id, Link: created.HtmlLink}, nil
}

func (g *googleCalendar) PatchEvent(ctx context.Context, calendarID, eventID string, event Event) (EventRef, error) {
	updated, err := g.svc.Events.Patch(calendarID, eventID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return EventRef{}, fmt.Errorf("%w: %s", calendarsyncerrors.ErrEventGone, eventID)
		}
		return EventRef{}, fmt.Errorf("patch event %s: %w", eventID, err)
	}
	if updated.Status == "cancelled" {
		return EventRef{}, fmt.Errorf("%w: %s", calendarsyncerrors.ErrEventGone, eventID)
	}
	return EventRef{ID: updated.Id, Link: updated.HtmlLink}, nil
}

func (g *googleCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil && !isGone(err) {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
}

func toGoogleEvent(e Event) *gcal.Event {
	ev := &gcal.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       &gcal.EventDateTime{DateTime: e.Start.Format(time.RFC3339), TimeZone: e.TimeZone},
		End:         &gcal.EventDateTime{DateTime: e.End.Format(time.RFC3339), TimeZone: e.TimeZone},
	}
	if e.ExternalID != "" {
		ev.ExtendedProperties = &gcal.EventExtendedProperties{
			Private: map[string]string{showingIDProperty: e.ExternalID},
		}
	}
	return ev
}
