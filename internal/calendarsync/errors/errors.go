package errors

import "errors"

var (
	// ErrSync marks a failed external calendar operation. It is recorded on the showing
	// as the sync error flag and never returned to API callers.
	ErrSync = errors.New("calendar sync failed")

	// ErrCredentialMissing means the lot owner has not connected a calendar. Sync is skipped.
	ErrCredentialMissing = errors.New("no calendar credential for owner")

	// ErrCredentialRevoked means the stored grant can no longer be used: the refresh token
	// was revoked or cannot be unsealed. The owner has to connect the calendar again.
	ErrCredentialRevoked = errors.New("calendar credential revoked")

	ErrQueueFull   = errors.New("calendar sync queue is full")
	ErrQueueClosed = errors.New("calendar sync queue is closed")

	// ErrEventGone is returned when the external event was deleted outside this service.
	ErrEventGone = errors.New("calendar event no longer exists")
)
