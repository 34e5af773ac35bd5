package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrDecode is returned when a rows response is not valid JSON.
	ErrDecode = errors.New("decode rows response")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a failed dataset-server request.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	URL        string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("dataset-server %s error", e.ErrorClass)
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
func (e *APIError) Unwrap() error {
	return e.Err
}

// classify maps a transport error or response status to an ErrorClass.
// A nil error with a 2xx/3xx status yields "".
func classify(statusCode int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classOf extracts the ErrorClass carried by err, if any.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx errors will not change on retry
		return false
	}
}
