package providers

import (
	"context"
	"errors"
	"fmt"
)

// Error is a transport-level failure from a provider call. It is the
// error type the scheduler surfaces as the "error" outcome, distinct
// from both safe and unsafe decisions.
type Error struct {
	// Provider is the instance name.
	Provider string

	// StatusCode is the HTTP status, 0 for network-level failures.
	StatusCode int

	// Message is the provider's error text, when available.
	Message string

	// Err wraps the underlying error, when any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("provider %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("provider %s: status %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("provider %s: request failed", e.Provider)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: network errors,
// timeouts, 429 and 5xx statuses.
func (e *Error) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsTimeout reports whether err is a deadline-style failure.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
