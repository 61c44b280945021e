package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the shortener. Callers wrap these with context and match
// them with errors.Is.

// ErrInvalidInput is returned for a blank URL, a negative expiry or a malformed alias.
var ErrInvalidInput = errors.New("invalid input")

// ErrOutOfRange is returned when a value cannot be represented by the codec.
var ErrOutOfRange = errors.New("value out of range")

// ErrClockRegression is returned when the system clock moved backwards under the
// ID generator. The call may be retried after a short delay.
var ErrClockRegression = errors.New("clock moved backwards")

// ErrConflict is returned when an insert collides with an existing id or alias.
var ErrConflict = errors.New("short link conflict")

// ErrNotFound is returned when an alias is unknown or expired.
var ErrNotFound = errors.New("short link not found")

// ErrStoreUnavailable is returned when the durable store cannot serve a request.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrCacheUnavailable marks cache failures. It is logged, never surfaced.
var ErrCacheUnavailable = errors.New("cache unavailable")

// ErrConfiguration is returned when a component is constructed with invalid settings.
var ErrConfiguration = errors.New("invalid configuration")

// ErrTaskRejected is returned when a background task cannot be queued
type ErrTaskRejected struct {
	Task   string
	Reason string
}

func (e ErrTaskRejected) Error() string {
	return fmt.Sprintf("task %s rejected: %s", e.Task, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}

func (e ErrConfigLoad) Unwrap() error {
	return ErrConfiguration
}

// Category returns a short label for err, used for logs and metrics.
func Category(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrClockRegression):
		return "clock_regression"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrCacheUnavailable):
		return "cache_unavailable"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

// Retryable reports whether a caller may retry the failed operation as is.
func Retryable(err error) bool {
	return errors.Is(err, ErrClockRegression) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrStoreUnavailable)
}
