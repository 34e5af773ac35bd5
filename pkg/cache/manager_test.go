package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips when none is running.
// The integration suite covers the same paths against a testcontainers Redis.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func rowsKey(offset string) Key {
	return Key{
		Endpoint: "/rows",
		QueryParams: url.Values{
			"dataset": []string{"org/name"},
			"offset":  []string{offset},
			"length":  []string{"100"},
		},
	}
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, 0)
	if manager.rdb != client {
		t.Error("Manager redis client not set correctly")
	}
	if manager.FallbackTTL() != DefaultTTL {
		t.Errorf("FallbackTTL() = %v, want %v", manager.FallbackTTL(), DefaultTTL)
	}

	custom := NewManager(client, time.Hour)
	if custom.FallbackTTL() != time.Hour {
		t.Errorf("FallbackTTL() = %v, want 1h", custom.FallbackTTL())
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, 0)
}

func TestManager_SetAndGet(t *testing.T) {
	manager := NewManager(setupTestRedis(t), 0)
	ctx := context.Background()

	entry := &Entry{
		Status:    200,
		Header:    http.Header{"Content-Type": []string{"application/json"}},
		Body:      []byte(`{"rows": []}`),
		StoredAt:  time.Now(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}

	if err := manager.Set(ctx, rowsKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, rowsKey("0"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != string(entry.Body) {
		t.Errorf("Body mismatch: got %s, want %s", got.Body, entry.Body)
	}
	if got.Status != 200 {
		t.Errorf("Status = %d, want 200", got.Status)
	}

	if _, err := manager.Get(ctx, rowsKey("100")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get of other offset = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Set_ExpiredEntryNotStored(t *testing.T) {
	manager := NewManager(setupTestRedis(t), 0)
	ctx := context.Background()

	entry := &Entry{
		Body:      []byte(`{"rows": []}`),
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}

	if err := manager.Set(ctx, rowsKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, rowsKey("0")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 0)
	ctx := context.Background()

	client.Set(ctx, rowsKey("0").String(), "not json", time.Minute)

	if _, err := manager.Get(ctx, rowsKey("0")); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestManager_Get_StaleEntryRemoved(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 0)
	ctx := context.Background()

	raw, _ := json.Marshal(Entry{Body: []byte(`{}`), ExpiresAt: time.Now().Add(-time.Second)})
	client.Set(ctx, rowsKey("0").String(), raw, time.Minute)

	if _, err := manager.Get(ctx, rowsKey("0")); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected ErrCacheMiss for stale entry, got %v", err)
	}
	if n := client.Exists(ctx, rowsKey("0").String()).Val(); n != 0 {
		t.Errorf("stale entry still stored (exists=%d)", n)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(setupTestRedis(t), 0)
	ctx := context.Background()

	entry := &Entry{Body: []byte(`{}`), ExpiresAt: time.Now().Add(5 * time.Minute)}
	if err := manager.Set(ctx, rowsKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, rowsKey("0")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, rowsKey("0")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(setupTestRedis(t), 0)

	if err := manager.Set(context.Background(), rowsKey("0"), nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}
