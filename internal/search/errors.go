package search

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by the client.
var (
	// ErrEmptyQuery is returned when the query is empty after trimming.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmptyFilter is returned when a filter request carries no fields.
	ErrEmptyFilter = errors.New("filter request is empty")

	// ErrRequestFailed wraps transport failures: connection refused, DNS,
	// timeouts, cancellation.
	ErrRequestFailed = errors.New("request to review service failed")

	// ErrInvalidResponse indicates a 2xx reply whose body could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from review service")
)

// StatusError is a non-2xx reply from the service.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("review service returned HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("review service returned HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == code
	}
	return false
}
