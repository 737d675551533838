package errors

import "errors"

var (
	ErrNotFound = errors.New("showing not found")

	ErrInvalidID = errors.New("invalid showing ID format")

	ErrTimeConflict = errors.New("showing time conflicts with an existing scheduled showing")

	ErrInvalidTimeRange = errors.New("end time must be after start time")

	ErrInvalidTransition = errors.New("showing status transition not allowed")

	// ErrStatusChanged is returned by compare-and-set writes when the stored status no
	// longer matches the expected one.
	ErrStatusChanged = errors.New("showing status changed concurrently")
)
