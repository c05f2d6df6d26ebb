package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/treason-stats/internal/model"
	"github.com/mcoot/treason-stats/internal/storage"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidGameStats   = "INVALID_GAME_STATS"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeWriteFailed        = "WRITE_FAILED"
	CodeQueryFailed        = "QUERY_FAILED"
	CodeTimeout            = "TIMEOUT"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Caller mistakes
	case errors.Is(err, model.ErrInvalidGameStats):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidGameStats, err.Error()}}

	// Store not provisioned, usually because initialization failed
	case errors.Is(err, storage.ErrDatabaseMissing), errors.Is(err, storage.ErrViewNotDefined):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStorageUnavailable, "Storage is not available"}}

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeTimeout, "Request did not complete in time"}}

	case errors.Is(err, model.ErrWrite):
		return &httpError{http.StatusInternalServerError, APIError{CodeWriteFailed, "Failed to save"}}
	case errors.Is(err, model.ErrQuery):
		return &httpError{http.StatusInternalServerError, APIError{CodeQueryFailed, "Failed to read statistics"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, message}}
}

// NewMethodNotAllowedError creates a method not allowed error
func NewMethodNotAllowedError() error {
	return &httpError{http.StatusMethodNotAllowed, APIError{CodeMethodNotAllowed, "Method not allowed"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
