package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBodySize = 64 << 10

var (
	// ErrUnauthenticated means no auth token is available. The user can fix it by signing in,
	// so callers must not retry.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTimeout means the exchange did not complete before its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrStreamTruncated means the event stream ended before a terminal chunk or sentinel.
	ErrStreamTruncated = errors.New("stream ended before completion")
	// ErrUnauthorized is matched by transport errors carrying HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is matched by transport errors carrying HTTP 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is matched by transport errors carrying HTTP 404.
	ErrNotFound = errors.New("not found")
)

// TransportError reports a non-2xx response or a network failure talking to the backend.
// Status is 0 for network failures.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("transport: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("transport: %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("transport: %d %s", e.Status, http.StatusText(e.Status))
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is maps well-known statuses onto the package sentinels.
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// IsRetryable reports whether an exchange failing with err is worth offering a retry for.
// Auth problems are user-fixable and client errors will fail again unchanged.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrUnauthenticated) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrStreamTruncated) {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status == 0 || te.Status == http.StatusTooManyRequests || te.Status >= 500
	}
	return false
}

// ErrorFromResponse builds a TransportError from a non-2xx response, preferring the
// backend's `{"error": "..."}` message over the bare status. The caller closes the body.
func ErrorFromResponse(resp *http.Response) error {
	te := &TransportError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return te
	}
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		te.Message = strings.TrimSpace(parsed.Error)
		if te.Message == "" {
			te.Message = strings.TrimSpace(parsed.Message)
		}
	}
	return te
}
