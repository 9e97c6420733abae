// Package cache holds the in-process metrics cache and the Redis client factory.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Observer is told whether each lookup was served from a live entry
type Observer interface {
	ObserveCacheLookup(key string, hit bool)
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithObserver reports hits and misses
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		c.observer = o
	}
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a key/value store with per-entry TTL where concurrent misses
// on the same key share one computation.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	group    singleflight.Group
	now      func() time.Time
	observer Observer
}

// New creates an empty Cache
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the live value for key, or runs compute once across all
// concurrent callers and stores its result for ttl. Failed or panicking computations
// are not stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		c.observe(key, true)
		return v, nil
	}
	c.observe(key, false)

	ch := c.group.DoChan(key, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, fmt.Errorf("computing %s: panic: %v", key, r)
			}
		}()

		// another flight may have stored the key between lookup and DoChan
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err = compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.set(key, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) set(key string, value any, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

func (c *Cache) observe(key string, hit bool) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(family(key), hit)
	}
}

// family strips key arguments so metric labels stay low-cardinality
func family(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
