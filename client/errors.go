package client

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned when the server rejects the session's
	// token. The session is cleared before it is returned.
	ErrUnauthorized = errors.New("session expired, please sign in again")

	// ErrTooShort rejects a message before any network traffic.
	ErrTooShort = errors.New("message must be at least 2 characters")

	// ErrSendInFlight rejects a send while another one is outstanding.
	ErrSendInFlight = errors.New("a message is already being sent")

	// ErrNotEnrolled is the client-side mapping of the server refusing a
	// course operation for a non-member.
	ErrNotEnrolled = errors.New("you are not enrolled in this course")
)

// APIError is a non-2xx response from the server that is not covered
// by a more specific sentinel error.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server rejected request (%d)", e.StatusCode)
}

// NetworkError wraps a transport failure: the request never produced a
// server response, so nothing can be said about its outcome.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }

func IsNetworkError(err error) bool {
	_, ok := errors.Cause(err).(*NetworkError)
	return ok
}
