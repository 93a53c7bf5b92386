package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCoordinate rejects non-finite or out-of-range lat/lon.
	ErrInvalidCoordinate = errors.New("latitude must be in [-90,90] and longitude in [-180,180]")

	// ErrInvalidType rejects event types outside the known enum.
	ErrInvalidType = errors.New("unknown event type")

	ErrNotFound = errors.New("event not found")

	// ErrUnavailable marks a temporary fault the caller may retry with backoff.
	ErrUnavailable = errors.New("service temporarily unavailable")
)

func InvalidTypeError(t EventType) error {
	return fmt.Errorf("%w: %q", ErrInvalidType, t)
}

func InvalidCoordinateError(lat, lon float64) error {
	return fmt.Errorf("%w: got (%v, %v)", ErrInvalidCoordinate, lat, lon)
}

// IsInvalidInput reports whether err belongs to the caller-error class that
// maps to HTTP 400 and is never retried server-side.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidCoordinate) || errors.Is(err, ErrInvalidType)
}
