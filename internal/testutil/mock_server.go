// Package testutil provides a mock dataset-server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
)

// MockResponse is a canned reply for one offset.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string

	// Times limits how often the reply is served; 0 means always.
	Times int
}

// MockDatasetServer serves GET /rows over a synthetic dataset of TotalRows rows.
// Row i has row_idx i and fields full_text "row i text", topic "Topic i",
// lang "en", date 1700000000+i*86400 and link "https://example.com/i".
type MockDatasetServer struct {
	server *httptest.Server

	mu        sync.RWMutex
	totalRows int
	overrides map[int]MockResponse
	textFunc  func(i int) string
	requests  []url.Values
	userAgent string
}

// NewMockDatasetServer creates a server holding totalRows rows.
func NewMockDatasetServer(totalRows int) *MockDatasetServer {
	m := &MockDatasetServer{
		totalRows: totalRows,
		overrides: make(map[int]MockResponse),
		textFunc:  func(i int) string { return fmt.Sprintf("row %d text", i) },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rows", m.handleRows)
	m.server = httptest.NewServer(mux)

	return m
}

// URL returns the server's /rows endpoint.
func (m *MockDatasetServer) URL() string {
	return m.server.URL + "/rows"
}

// Close shuts down the mock server.
func (m *MockDatasetServer) Close() {
	m.server.Close()
}

// SetTotalRows changes the dataset size.
func (m *MockDatasetServer) SetTotalRows(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRows = n
}

// SetText overrides the full_text value generator.
func (m *MockDatasetServer) SetText(fn func(i int) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textFunc = fn
}

// SetResponse replaces the reply for requests at the given offset.
func (m *MockDatasetServer) SetResponse(offset int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[offset] = resp
}

// Requests returns the query of every request received, in order.
func (m *MockDatasetServer) Requests() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.requests...)
}

// RequestCount returns the number of requests received.
func (m *MockDatasetServer) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastUserAgent returns the User-Agent of the latest request.
func (m *MockDatasetServer) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userAgent
}

func (m *MockDatasetServer) handleRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	m.mu.Lock()
	m.requests = append(m.requests, q)
	m.userAgent = r.Header.Get("User-Agent")
	total := m.totalRows
	textFunc := m.textFunc
	m.mu.Unlock()

	offset, errOffset := strconv.Atoi(q.Get("offset"))
	length, errLength := strconv.Atoi(q.Get("length"))
	if q.Get("dataset") == "" || errOffset != nil || errLength != nil || offset < 0 || length < 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "Parameter 'dataset', 'offset' and 'length' are required"})
		return
	}

	m.mu.Lock()
	override, ok := m.overrides[offset]
	if ok && override.Times > 0 {
		override.Times--
		if override.Times == 0 {
			delete(m.overrides, offset)
		} else {
			m.overrides[offset] = override
		}
	}
	m.mu.Unlock()
	if ok {
		for k, v := range override.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(override.StatusCode)
		w.Write([]byte(override.Body))
		return
	}

	rows := make([]map[string]any, 0, length)
	for i := offset; i < offset+length && i < total; i++ {
		rows = append(rows, map[string]any{
			"row_idx": i,
			"row": map[string]any{
				"full_text": textFunc(i),
				"topic":     fmt.Sprintf("Topic %d", i),
				"lang":      "en",
				"date":      1700000000 + i*86400,
				"link":      fmt.Sprintf("https://example.com/%d", i),
			},
			"truncated_cells": []string{},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"features":          []any{},
		"rows":              rows,
		"num_rows_total":    total,
		"num_rows_per_page": 100,
		"partial":           false,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewNotFoundResponse creates a 404 response like an unknown dataset.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "The dataset does not exist."}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewMalformedResponse creates a 200 response with a body that is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>oops</html>`,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}
