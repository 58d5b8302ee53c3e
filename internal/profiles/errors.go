package profiles

import "errors"

var (
	// ErrInvalidRoster indicates a roster cannot be built from the given input.
	ErrInvalidRoster = errors.New("invalid data for saving roster")
	// ErrMalformedRoster indicates a roster document could not be decoded.
	ErrMalformedRoster = errors.New("malformed roster document")
)
