package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when no expires header is present
	DefaultTTL = 10 * time.Minute
)

// ResponseToEntry converts an HTTP response to an Entry.
// The response body is read and restored for the caller.
func ResponseToEntry(resp *http.Response, fallbackTTL time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Entry{
		Status:    resp.StatusCode,
		Header:    resp.Header.Clone(),
		Body:      body,
		StoredAt:  time.Now(),
		ExpiresAt: parseExpires(resp.Header, fallbackTTL),
	}, nil
}

// EntryToResponse rebuilds an HTTP response from a cached entry.
func EntryToResponse(entry *Entry, req *http.Request) *http.Response {
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Cache", "HIT")

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.Status, http.StatusText(entry.Status)),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}

// parseExpires derives the expiration time from response headers.
// Cache-Control max-age wins over Expires; without either, fallback applies.
func parseExpires(headers http.Header, fallback time.Duration) time.Time {
	if fallback <= 0 {
		fallback = DefaultTTL
	}
	now := time.Now()

	if maxAge, ok := parseMaxAge(headers.Get("Cache-Control")); ok {
		return now.Add(maxAge)
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(fallback)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(fallback)
	}

	if expires.Before(now) {
		return now
	}

	return expires
}

// parseMaxAge extracts max-age from a Cache-Control value.
// no-store and no-cache map to a zero duration.
func parseMaxAge(cacheControl string) (time.Duration, bool) {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.ToLower(strings.TrimSpace(directive))
		if directive == "no-store" || directive == "no-cache" {
			return 0, true
		}
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			secs, err := strconv.Atoi(v)
			if err != nil || secs < 0 {
				return 0, false
			}
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}
