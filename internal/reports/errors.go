package reports

import (
	"errors"
	"net/http"
)

// Domain errors for report operations.
var (
	ErrNotFound        = errors.New("report not found")
	ErrDuplicate       = errors.New("report already exists")
	ErrInvalidAnalysis = errors.New("invalid analysis")
)

// MapHTTPStatus maps report domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidAnalysis) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
