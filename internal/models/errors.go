package models

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a structured error for an API operation. It carries
// the HTTP status code so callers can distinguish an expired session (401)
// from insufficient privilege (403) from an upstream fault (5xx); the
// remediation differs for each. A zero StatusCode means the error never
// reached the server (network failure).
type APIError struct {
	// Code is a short machine-readable error code (e.g. "unauthorized").
	Code string `json:"error"`
	// Message provides additional human-readable error information.
	Message string `json:"message,omitempty"`
	// Endpoint is the API path that produced the error, when known.
	Endpoint string `json:"endpoint,omitempty"`
	// StatusCode is the HTTP status code (excluded from JSON; zero for
	// network-level failures that carry no status).
	StatusCode int `json:"-"`
}

// Error returns a string representation of the API error.
// It implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// NewUnauthorized creates an APIError indicating a missing, invalid, or
// expired session token. Returns HTTP 401 Unauthorized.
func NewUnauthorized(message string) *APIError {
	return &APIError{
		Code:       "unauthorized",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbidden creates an APIError indicating the caller is authenticated
// but lacks the required privilege. Returns HTTP 403 Forbidden.
func NewForbidden(message string) *APIError {
	return &APIError{
		Code:       "forbidden",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewServerError creates an APIError indicating an unexpected server-side
// condition. Returns HTTP 500 Internal Server Error.
func NewServerError(message string) *APIError {
	return &APIError{
		Code:       "server_error",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewValidationError creates an APIError for malformed or invalid request
// input. Returns HTTP 422 Unprocessable Entity.
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:       "validation_failed",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// StatusOf extracts the HTTP status code from an error chain. It returns
// (0, false) when the error carries no status, which callers treat as a
// network-level failure.
func StatusOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// Sentinel errors shared by the storage layers. Read paths translate
// "expired" and "never existed" into the same condition.
var (
	// ErrSessionNotFound indicates the session token is absent or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUserNotFound indicates no user matched the query.
	ErrUserNotFound = errors.New("user not found")

	// ErrWordNotFound indicates no vocabulary word matched the query.
	ErrWordNotFound = errors.New("word not found")

	// ErrNoteNotFound indicates no note matched the query.
	ErrNoteNotFound = errors.New("note not found")
)
