package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned by Get when no fresh entry exists.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned by Get when the stored value does not decode.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores entries in Redis under Key.String().
type Manager struct {
	rdb         *redis.Client
	fallbackTTL time.Duration
}

// NewManager wraps rdb. fallbackTTL <= 0 selects DefaultTTL.
func NewManager(rdb *redis.Client, fallbackTTL time.Duration) *Manager {
	if rdb == nil {
		panic("cache: nil redis client")
	}
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultTTL
	}
	return &Manager{rdb: rdb, fallbackTTL: fallbackTTL}
}

// FallbackTTL applies to responses without Cache-Control or Expires.
func (m *Manager) FallbackTTL() time.Duration {
	return m.fallbackTTL
}

// Ping checks that Redis is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}

// Get returns the fresh entry for key or ErrCacheMiss. A stale entry is
// removed on the way out.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	raw, err := m.rdb.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		lookupsTotal.WithLabelValues("miss").Inc()
		return nil, ErrCacheMiss
	case err != nil:
		redisErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	entry := new(Entry)
	if err := json.Unmarshal(raw, entry); err != nil {
		redisErrorsTotal.WithLabelValues("decode").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if !entry.Fresh(time.Now()) {
		lookupsTotal.WithLabelValues("stale").Inc()
		_ = m.Delete(ctx, key)
		return nil, ErrCacheMiss
	}

	lookupsTotal.WithLabelValues("hit").Inc()
	return entry, nil
}

// Set stores entry until its ExpiresAt. Entries with no lifetime left are
// silently skipped.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return errors.New("cache: nil entry")
	}
	ttl := entry.TTL()
	if ttl == 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := m.rdb.Set(ctx, key.String(), raw, ttl).Err(); err != nil {
		redisErrorsTotal.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	storedBytesTotal.Add(float64(len(raw)))
	return nil
}

// Delete removes key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.rdb.Del(ctx, key.String()).Err(); err != nil {
		redisErrorsTotal.WithLabelValues("del").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
