package proxy

import (
	"errors"
	"fmt"
)

// Sentinel errors for proxy operations.
var (
	// ErrBodyTooLarge is returned by NewRequest when the inbound body
	// exceeds the configured cap.
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrCircuitOpen is returned by Forward when the backend's breaker is
	// rejecting calls.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// ExhaustedError reports that every attempt against a backend failed.
type ExhaustedError struct {
	Backend  string // display name
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d retry attempts failed for %s", e.Attempts, e.Backend)
}

// Unwrap returns the error of the final attempt.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// AttemptError wraps a single failed attempt.
type AttemptError struct {
	Attempt int
	Op      string // "send" or "read_body"
	Cause   error
}

// Error implements the error interface.
func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d: %s: %v", e.Attempt, e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *AttemptError) Unwrap() error {
	return e.Cause
}
