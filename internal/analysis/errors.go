package analysis

import "errors"

var (
	// ErrRosterUnreadable indicates the input roster could not be read or decoded.
	ErrRosterUnreadable = errors.New("roster unreadable")
	// ErrMalformedAnalysis indicates a stored analysis document could not be decoded.
	ErrMalformedAnalysis = errors.New("malformed analysis document")
)
