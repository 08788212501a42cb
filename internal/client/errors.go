package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// APIError is a non-2xx response from the remote service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Transient() {
		return fmt.Sprintf("%s %s: transient error: %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Transient reports whether the status code marks a retriable failure.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ResponseBody exposes the raw response body for error reporting.
func (e *APIError) ResponseBody() string {
	return e.Body
}

// IsTransient is the HTTP-layer retry predicate: 429/5xx responses and
// network-level failures are retriable; everything else is not.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
