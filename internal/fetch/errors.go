package fetch

import "errors"

var (
	// ErrUpstreamStatus indicates the upstream answered with a non-2xx status.
	ErrUpstreamStatus = errors.New("upstream returned error status")
	// ErrMalformedPayload indicates the upstream body was not valid JSON.
	ErrMalformedPayload = errors.New("malformed likers payload")
)
