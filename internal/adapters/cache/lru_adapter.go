package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/medicrew/backend/internal/domain/providers"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// DefaultLRUSize bounds the in-process cache when no size is given.
const DefaultLRUSize = 1024

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRUAdapter is an in-process CacheProvider used when Redis is disabled.
type LRUAdapter struct {
	cache *lru.Cache[string, cacheEntry]
	now   func() time.Time

	// counters serialises Increment's read-modify-write
	counters sync.Mutex
}

// NewLRUAdapter creates a bounded in-memory cache.
func NewLRUAdapter(size int) (providers.CacheProvider, error) {
	return newLRUAdapter(size, time.Now)
}

func newLRUAdapter(size int, now func() time.Time) (*LRUAdapter, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	c, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &LRUAdapter{cache: c, now: now}, nil
}

// Get retrieves a value from cache
func (a *LRUAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := a.cache.Get(key)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("cache key not found: %s", key))
	}
	if entry.expired(a.now()) {
		a.cache.Remove(key)
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("cache key not found: %s", key))
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value in cache with expiration. Zero means no expiry.
func (a *LRUAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	entry := cacheEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if expirationSeconds > 0 {
		entry.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	a.cache.Add(key, entry)
	return nil
}

// Delete removes a value from cache
func (a *LRUAdapter) Delete(ctx context.Context, key string) error {
	a.cache.Remove(key)
	return nil
}

// Exists checks if a key exists in cache
func (a *LRUAdapter) Exists(ctx context.Context, key string) (bool, error) {
	entry, ok := a.cache.Peek(key)
	if !ok {
		return false, nil
	}
	return !entry.expired(a.now()), nil
}

// Increment stores counters as decimal text, matching Redis INCR
func (a *LRUAdapter) Increment(ctx context.Context, key string, expirationSeconds int) (int64, error) {
	a.counters.Lock()
	defer a.counters.Unlock()

	now := a.now()
	entry, ok := a.cache.Get(key)
	if !ok || entry.expired(now) {
		entry = cacheEntry{value: []byte("0")}
		if expirationSeconds > 0 {
			entry.expiresAt = now.Add(time.Duration(expirationSeconds) * time.Second)
		}
	}

	count, err := strconv.ParseInt(string(entry.value), 10, 64)
	if err != nil {
		return 0, apperrors.NewConflictError(fmt.Sprintf("cache key %s does not hold a counter", key))
	}
	count++
	entry.value = []byte(strconv.FormatInt(count, 10))
	a.cache.Add(key, entry)
	return count, nil
}
