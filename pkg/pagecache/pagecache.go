// Package pagecache provides a Redis-backed cache of orders API page
// responses. Market pages are hot and shared across browsing sessions; a
// short TTL bounds staleness while absorbing repeat fetches for the same
// (filters, page) pair.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Key identifies one cached page response.
type Key struct {
	// FiltersKey is the canonical filter snapshot string (market.Filters.Key).
	FiltersKey string

	// PageKey is the page identifier within the snapshot (market.PageRequest.PageKey).
	PageKey string

	// Size is the requested page size; different sizes cut page
	// boundaries differently and must not share entries.
	Size int
}

// String generates a deterministic Redis key.
// Format: market:pages:{filters}:{pagekey}:{size}
func (k Key) String() string {
	return strings.Join([]string{
		"market", "pages", k.FiltersKey, k.PageKey, strconv.Itoa(k.Size),
	}, ":")
}

// Entry is a cached page response.
type Entry struct {
	// Payload is the JSON-encoded page envelope as received from the API.
	Payload []byte `json:"payload"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// ExpiresAt is when the entry becomes stale.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the entry has passed its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the time until expiry, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Manager handles page cache operations with a Redis backend.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// DefaultTTL bounds how stale a served page may be. Market orders mutate
// continuously; anything longer trades correctness for very little load.
const DefaultTTL = 30 * time.Second

// NewManager creates a page cache manager. A non-positive ttl falls back
// to DefaultTTL.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{redis: redisClient, ttl: ttl}
}

// Get retrieves a cached page payload by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (m *Manager) Get(ctx context.Context, key Key) ([]byte, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			Misses.Inc()
			return nil, ErrCacheMiss
		}
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		Misses.Inc()
		return nil, ErrCacheMiss
	}

	Hits.Inc()
	return entry.Payload, nil
}

// Set stores a page payload under the manager's TTL. Redis expiry removes
// the entry server-side; the ExpiresAt field guards against clock skew
// between writers.
func (m *Manager) Set(ctx context.Context, key Key, payload []byte) error {
	now := time.Now()
	entry := Entry{
		Payload:   payload,
		StoredAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, m.ttl).Err(); err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		Errors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// InvalidateFilters removes every cached page for one filter snapshot.
// Used when a consumer explicitly refreshes a session.
func (m *Manager) InvalidateFilters(ctx context.Context, filtersKey string) error {
	pattern := "market:pages:" + filtersKey + ":*"

	iter := m.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := m.redis.Del(ctx, iter.Val()).Err(); err != nil {
			Errors.WithLabelValues("delete").Inc()
			return fmt.Errorf("redis del %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		Errors.WithLabelValues("scan").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}
