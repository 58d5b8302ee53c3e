package posts

import (
	"errors"
	"net/http"
)

// Domain errors for post artifact operations.
var (
	ErrNotFound       = errors.New("post file not found")
	ErrInvalidPost    = errors.New("invalid post id")
	ErrInvalidFile    = errors.New("file is not a post artifact")
	ErrInvalidWeights = errors.New("invalid weights")
	ErrRankInProgress = errors.New("rank pass already in progress")
)

// MapHTTPStatus maps post domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidPost) || errors.Is(err, ErrInvalidFile) || errors.Is(err, ErrInvalidWeights) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRankInProgress) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
