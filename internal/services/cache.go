package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// resultCache holds computed result tables for a fixed TTL. Concurrent
// misses for one key share a single computation. Errors are never cached.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	flight singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	value      any
	expiresAt  time.Time
	lastAccess atomic.Int64
}

// CacheStats is reported on the admin endpoint.
type CacheStats struct {
	Entries int           `json:"entries"`
	Hits    int64         `json:"hits"`
	Misses  int64         `json:"misses"`
	TTL     time.Duration `json:"ttl"`
}

func newResultCache(ttl time.Duration, maxSize int, now func() time.Time) *resultCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if now == nil {
		now = time.Now
	}
	return &resultCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
	}
}

func (c *resultCache) enabled() bool {
	return c.ttl > 0
}

func (c *resultCache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if !now.Before(entry.expiresAt) {
		// expired entries are removed by cleanup
		return nil, false
	}
	entry.lastAccess.Store(now.UnixNano())
	return entry.value, true
}

func (c *resultCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}

	now := c.now()
	entry := &cacheEntry{value: value, expiresAt: now.Add(c.ttl)}
	entry.lastAccess.Store(now.UnixNano())
	c.entries[key] = entry
}

func (c *resultCache) evictLRU() {
	var (
		oldestKey  string
		oldestTime int64
	)
	for key, entry := range c.entries {
		at := entry.lastAccess.Load()
		if oldestKey == "" || at < oldestTime {
			oldestKey, oldestTime = key, at
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cleanup drops expired entries.
func (c *resultCache) cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

func (c *resultCache) stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		TTL:     c.ttl,
	}
}

// cached returns the value stored under key or computes it with fn.
// Concurrent callers of one key share a single computation. It runs
// detached from any caller's cancellation, and each caller stops waiting
// when its own ctx ends. The sources bound every query with their own
// timeout.
func cached[T any](ctx context.Context, c *resultCache, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if !c.enabled() {
		return fn(ctx)
	}
	if v, ok := c.get(key); ok {
		c.hits.Add(1)
		return v.(T), nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		c.misses.Add(1)
		result, err := fn(shared)
		if err != nil {
			return nil, err
		}
		c.set(key, result)
		return result, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
