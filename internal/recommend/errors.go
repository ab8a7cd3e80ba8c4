// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the user-data service does not know the user.
	ErrUserNotFound = errors.New("user not found")

	// ErrUpstreamUnavailable wraps timeouts, connection failures, 5xx
	// responses and open circuit breakers on collaborator calls.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrEmptyCatalog is returned when no catalog has been loaded.
	ErrEmptyCatalog = errors.New("catalog is empty")

	// ErrInvalidDimension marks vectors of mismatched length.
	ErrInvalidDimension = errors.New("invalid vector dimension")

	// ErrOverloaded is returned when the compute queue is full.
	ErrOverloaded = errors.New("compute pool overloaded")
)

// DimensionError reports a vector whose length differs from the catalog's.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrInvalidDimension, e.Want, e.Got)
}

// Unwrap lets errors.Is match ErrInvalidDimension.
func (e *DimensionError) Unwrap() error {
	return ErrInvalidDimension
}
