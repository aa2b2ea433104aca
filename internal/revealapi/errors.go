// Package revealapi provides the HTTP client for the storage server's
// hidden-folder endpoints: reveal (passphrase → session token), hide, and
// directory listing. Requests are single-shot with error classification;
// retry policy belongs to callers that want one.
package revealapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status classification.
// Use errors.Is(err, revealapi.ErrForbidden) to check.
var (
	ErrBadRequest   = errors.New("revealapi: bad request")
	ErrUnauthorized = errors.New("revealapi: unauthorized")
	ErrForbidden    = errors.New("revealapi: forbidden")
	ErrNotFound     = errors.New("revealapi: not found")
	ErrServerError  = errors.New("revealapi: server error")
)

// APIError wraps a sentinel with the HTTP status and the server's error
// body (title/message), preserved separately so callers can surface a
// single human-readable string to the user.
type APIError struct {
	StatusCode int
	Title      string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("revealapi: HTTP %d: %s", e.StatusCode, e.Message)
	}

	if e.Title != "" {
		return fmt.Sprintf("revealapi: HTTP %d: %s", e.StatusCode, e.Title)
	}

	return fmt.Sprintf("revealapi: HTTP %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
