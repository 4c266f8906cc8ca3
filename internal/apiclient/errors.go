package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced to callers.  HTTP failures are reported as
// *HTTPError, which unwraps to one of these so callers can use errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("rejected by backend validation")
	ErrServer          = errors.New("backend error")
	ErrNetwork         = errors.New("network failure")
)

// HTTPError describes a non-2xx response from the backend.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap maps the status code onto an error kind.
func (e *HTTPError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthenticated
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusConflict:
		return ErrValidation
	default:
		return ErrServer
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
