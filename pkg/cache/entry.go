package cache

import (
	"net/http"
	"time"
)

// Entry is one stored dataset-server response.
type Entry struct {
	Status    int         `json:"status"`
	Header    http.Header `json:"header"`
	Body      []byte      `json:"body"`
	StoredAt  time.Time   `json:"stored_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Fresh reports whether the entry may still be served at now.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// TTL is the remaining lifetime, never negative.
func (e *Entry) TTL() time.Duration {
	return max(time.Until(e.ExpiresAt), 0)
}
