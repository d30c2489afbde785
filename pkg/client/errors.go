package client

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/sat-catalog-client/pkg/endpoint"
)

// ErrorClass represents a classification of request outcomes.
type ErrorClass string

const (
	// ErrorClassCancelled is a caller-initiated abort. Never an origin fault.
	ErrorClassCancelled ErrorClass = "cancelled"

	// ErrorClassTimeout is a primary call that exceeded its time budget.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassRemote is a non-2xx response.
	ErrorClassRemote ErrorClass = "remote"

	// ErrorClassTransport is a network failure (DNS, refused connection, reset).
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassNotFound is a 404 answer to a single-record lookup.
	ErrorClassNotFound ErrorClass = "not_found"
)

// Common errors returned by the client. Use errors.Is to test a RequestError's class.
var (
	// ErrCancelled is returned when the caller's context ends before the result arrives.
	ErrCancelled = errors.New("request cancelled")

	// ErrTimeout is returned when the primary origin exceeds its timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrRemote is returned for non-success responses.
	ErrRemote = errors.New("origin returned an error status")

	// ErrTransport is returned for network failures.
	ErrTransport = errors.New("origin unreachable")

	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
)

// RequestError describes a failed call against one origin.
type RequestError struct {
	Class      ErrorClass
	Origin     endpoint.Origin
	StatusCode int
	Message    string
	RequestID  string
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s error", e.Class)
	if e.Origin != "" {
		msg = fmt.Sprintf("%s %s", e.Origin, msg)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is matches the class sentinel, so errors.Is(err, ErrTimeout) works on any RequestError.
func (e *RequestError) Is(target error) bool {
	return target == e.Class.sentinel()
}

func (c ErrorClass) sentinel() error {
	switch c {
	case ErrorClassCancelled:
		return ErrCancelled
	case ErrorClassTimeout:
		return ErrTimeout
	case ErrorClassRemote:
		return ErrRemote
	case ErrorClassTransport:
		return ErrTransport
	case ErrorClassNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// ShouldFailover reports whether a failure of this class against the primary
// trips the sticky failover.
func ShouldFailover(class ErrorClass) bool {
	switch class {
	case ErrorClassTimeout, ErrorClassRemote, ErrorClassTransport:
		return true
	default:
		// Cancellation is the caller's choice; a 404 lookup is a valid answer
		return false
	}
}

// IsCancelled reports whether err is a caller cancellation.
// Callers use it to keep cancellations out of error logs and metrics.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// ClassOf returns the class of err, or "" when err is not a RequestError.
func ClassOf(err error) ErrorClass {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Class
	}
	return ""
}
