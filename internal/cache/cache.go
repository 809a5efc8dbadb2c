// Package cache memoizes resolve outcomes per logical-quantity key with a
// TTL. Failed or empty results are cached on purpose: it bounds retry
// frequency so a broken provider is not hammered on every render pass.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"miniterminal/internal/observ"
	"miniterminal/internal/resolve"
)

type entry struct {
	result   resolve.Result
	storedAt time.Time
	ttl      time.Duration
}

// Cache is the only shared mutable structure in a rendering pass. Reads and
// writes per key are serialized; distinct keys proceed in parallel. The
// singleflight group guarantees at most one in-flight fetch per key:
// concurrent callers wait for the winner's result instead of issuing
// duplicate upstream calls.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	now     func() time.Time
}

func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock injects the clock so TTL expiry is testable without waiting
// real time.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{entries: make(map[string]entry), now: now}
}

// GetOrFetch returns the cached result while fresh (age < ttl); otherwise it
// runs fetch, stores the outcome unconditionally with a fresh timestamp,
// and returns it. Entries are overwritten, never appended or deleted.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) resolve.Result) resolve.Result {
	if res, ok := c.fresh(key, ttl); ok {
		observ.IncCounter("cache_hit_total", map[string]string{"key": key})
		return res
	}
	observ.IncCounter("cache_miss_total", map[string]string{"key": key})
	v, _, _ := c.group.Do(key, func() (any, error) {
		// A caller that was queued behind the in-flight fetch finds the
		// freshly stored result here instead of fetching again.
		if res, ok := c.fresh(key, ttl); ok {
			return res, nil
		}
		res := fetch(ctx)
		c.store(key, res, ttl)
		return res, nil
	})
	return v.(resolve.Result)
}

// Refresh bypasses freshness entirely: it always fetches and overwrites the
// entry. Concurrent refreshes for one key still collapse to a single call.
func (c *Cache) Refresh(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) resolve.Result) resolve.Result {
	observ.IncCounter("cache_refresh_total", map[string]string{"key": key})
	v, _, _ := c.group.Do(key, func() (any, error) {
		res := fetch(ctx)
		c.store(key, res, ttl)
		return res, nil
	})
	return v.(resolve.Result)
}

// Peek returns the stored result regardless of freshness, with no fetch.
// This is the quiet-hours read path.
func (c *Cache) Peek(key string) (resolve.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return resolve.Result{}, false
	}
	return e.result, true
}

func (c *Cache) fresh(key string, ttl time.Duration) (resolve.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return resolve.Result{}, false
	}
	if c.now().Sub(e.storedAt) >= ttl {
		return resolve.Result{}, false
	}
	return e.result, true
}

func (c *Cache) store(key string, res resolve.Result, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{result: res, storedAt: c.now(), ttl: ttl}
}
