package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass classifies feed failures for retry decisions.
type ErrorClass string

const (
	// ErrorClassServer is a 5xx or 429 from the feed. Retried.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassClient is a 4xx or an unusable body. Not retried.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassNetwork is a transport failure or attempt timeout. Retried.
	ErrorClassNetwork ErrorClass = "network"
)

var (
	// ErrRetryExhausted is returned when all attempts failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when ctx ends between attempts.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNotFound is returned when the feed has no data for a query.
	ErrNotFound = errors.New("no GP data found")
)

// FeedError is a classified failure of one feed request.
type FeedError struct {
	Class      ErrorClass
	StatusCode int
	Err        error
}

func (e *FeedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %v", e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Class, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx status to an error class.
func classifyStatus(statusCode int) ErrorClass {
	if statusCode >= 500 || statusCode == http.StatusTooManyRequests {
		return ErrorClassServer
	}
	return ErrorClassClient
}

// ClassOf returns the class of err. Unclassified errors count as network errors.
func ClassOf(err error) ErrorClass {
	var feedErr *FeedError
	if errors.As(err, &feedErr) {
		return feedErr.Class
	}
	if errors.Is(err, ErrNotFound) {
		return ErrorClassClient
	}
	return ErrorClassNetwork
}

// shouldRetry determines if an error class should be retried.
func shouldRetry(class ErrorClass) bool {
	return class == ErrorClassServer || class == ErrorClassNetwork
}
