// Package errors provides the sentinel errors and wrapping helpers shared by phishtrace.
// Network adapters wrap low-level failures with one of the sentinels below so that
// the core can classify every failure without inspecting transport details.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios
var (
	// ErrTimeout indicates a call or the whole run exceeded its time limit
	ErrTimeout = errors.New("operation timed out")

	// ErrTransient indicates a retryable network condition (reset, refused, EOF)
	ErrTransient = errors.New("transient network error")

	// ErrConnectionFailed indicates a connection could not be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrRateLimit indicates a remote service throttled the request
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrServiceUnavailable indicates a remote service is temporarily unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidResponse indicates a response could not be parsed or was malformed
	ErrInvalidResponse = errors.New("invalid response")

	// ErrNotFound indicates the remote object or host does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrTLS indicates a TLS handshake or certificate validation failure
	ErrTLS = errors.New("tls failure")

	// ErrNoDelegation indicates no registry is authoritative for a key
	ErrNoDelegation = errors.New("no delegation")

	// ErrCircuitOpen indicates a registry is being short-circuited after repeated failures
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// wrappedError wraps an error with additional context
type wrappedError struct {
	msg   string
	cause error
}

func (e *wrappedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *wrappedError) Unwrap() error {
	return e.cause
}

// Wrap wraps an error with additional context message.
// If err is nil, Wrap returns nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: msg, cause: err}
}

// Wrapf wraps an error with a formatted context message.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: fmt.Sprintf(format, args...), cause: err}
}

// Mark tags cause with a sentinel so that both remain reachable through Is.
// If cause is nil the sentinel itself is returned.
//
// Example:
//
//	return errors.Mark(errors.ErrTLS, err)
func Mark(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	if errors.Is(cause, sentinel) {
		return cause
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// New creates a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf formats according to a format specifier and returns the string as a value that satisfies error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Join returns an error that wraps the given errors.
// Any nil error values are discarded.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// IsTimeout reports whether the error is a timeout error
func IsTimeout(err error) bool {
	return Is(err, ErrTimeout)
}

// IsRetryable reports whether a failed call may be attempted again.
// Timeouts are retryable only at call level; callers must check their own context first.
func IsRetryable(err error) bool {
	switch {
	case Is(err, ErrTransient), Is(err, ErrConnectionFailed):
		return true
	case Is(err, ErrServiceUnavailable), Is(err, ErrRateLimit):
		return true
	case Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

// IsNotFound reports whether the error is a not found error
func IsNotFound(err error) bool {
	return Is(err, ErrNotFound)
}

// IsInvalidResponse reports whether the error is an invalid response error
func IsInvalidResponse(err error) bool {
	return Is(err, ErrInvalidResponse)
}

// IsTLS reports whether the error is a TLS failure
func IsTLS(err error) bool {
	return Is(err, ErrTLS)
}
