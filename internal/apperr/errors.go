package apperr

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates a uniqueness or state conflict (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller may not perform the action or see the resource.
var ErrForbidden = errors.New("not permitted")

// ErrTripClosed is returned for actions on completed or cancelled trips.
var ErrTripClosed = fmt.Errorf("trip is closed: %w", ErrConflict)

// ErrTransaction wraps persistence failures that rolled a transaction back.
var ErrTransaction = errors.New("transaction failed")

// ErrNotification marks a failed notification delivery. It is logged, never returned to callers.
var ErrNotification = errors.New("notification failed")

// IsDomain reports whether err carries one of the caller-facing sentinels.
func IsDomain(err error) bool {
	return errors.Is(err, ErrInvalid) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden)
}
