package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error should not retry", ErrorClassClient, false},
		{"server error should retry", ErrorClassServer, true},
		{"rate limit should retry", ErrorClassRateLimit, true},
		{"network error should retry", ErrorClassNetwork, true},
		{"empty error class should not retry", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.expected)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		expected   ErrorClass
	}{
		{"network error", 0, errors.New("dial tcp: refused"), ErrorClassNetwork},
		{"client error 404", http.StatusNotFound, nil, ErrorClassClient},
		{"client error 422", http.StatusUnprocessableEntity, nil, ErrorClassClient},
		{"rate limit 429", http.StatusTooManyRequests, nil, ErrorClassRateLimit},
		{"server error 500", http.StatusInternalServerError, nil, ErrorClassServer},
		{"server error 503", http.StatusServiceUnavailable, nil, ErrorClassServer},
		{"success 200", http.StatusOK, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.statusCode, tt.err); got != tt.expected {
				t.Errorf("classify() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestClassOf(t *testing.T) {
	apiErr := &APIError{StatusCode: 500, ErrorClass: ErrorClassServer}
	wrapped := fmt.Errorf("fetch page 3: %w", apiErr)

	if got := classOf(wrapped); got != ErrorClassServer {
		t.Errorf("classOf(wrapped) = %q, want %q", got, ErrorClassServer)
	}
	if got := classOf(errors.New("plain")); got != "" {
		t.Errorf("classOf(plain) = %q, want empty", got)
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "dataset-server network error: request failed: connection refused",
		},
		{
			name: "error with status",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "The dataset does not exist.",
			},
			expected: "dataset-server client error (status 404): The dataset does not exist.",
		},
		{
			name: "rate limit error",
			apiError: &APIError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "rate limit exceeded",
			},
			expected: "dataset-server rate_limit error (status 429): rate limit exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{
		ErrorClass: ErrorClassNetwork,
		Err:        wrappedErr,
	}

	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	noWrap := &APIError{StatusCode: 404, ErrorClass: ErrorClassClient}
	if noWrap.Unwrap() != nil {
		t.Errorf("Unwrap() = %v, want nil", noWrap.Unwrap())
	}
}
