package errors

import "errors"

var (
	ErrNotFound = errors.New("lot not found")

	ErrInvalidID = errors.New("invalid lot ID format")
)
