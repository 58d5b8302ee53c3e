package enrich

import "errors"

var (
	// ErrNoUsername indicates a profile without a username cannot be looked up.
	ErrNoUsername = errors.New("profile has no username")
	// ErrProfileUnavailable indicates the upstream returned no user for a username.
	ErrProfileUnavailable = errors.New("profile unavailable")
	// ErrUpstreamStatus indicates the upstream answered with a non-2xx status.
	ErrUpstreamStatus = errors.New("upstream returned error status")
	// ErrNothingEnriched indicates every profile lookup of a roster failed.
	ErrNothingEnriched = errors.New("no profile could be enriched")
)
