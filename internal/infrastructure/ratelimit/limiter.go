// Package ratelimit implements fixed-window admission control per client.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWindow is the length of one counting window
const DefaultWindow = time.Minute

// Limiter decides whether a client may proceed
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// Bucket counts one client's requests inside the current window
type Bucket struct {
	ClientKey   string
	WindowStart time.Time
	Count       int
}

// FixedWindow is an in-memory fixed-window limiter scoped to one process
type FixedWindow struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewFixedWindow creates a limiter admitting limit requests per client per window
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	return &FixedWindow{
		buckets: make(map[string]*Bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// WithClock replaces time.Now, mainly for tests
func (l *FixedWindow) WithClock(now func() time.Time) *FixedWindow {
	l.now = now
	return l
}

// Allow counts the request and reports whether it is within the limit.
// Denied requests still count toward the current window.
func (l *FixedWindow) Allow(_ context.Context, clientKey string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[clientKey]
	if !ok {
		b = &Bucket{ClientKey: clientKey, WindowStart: now}
		l.buckets[clientKey] = b
	} else if now.Sub(b.WindowStart) >= l.window {
		b.WindowStart = now
		b.Count = 0
	}

	b.Count++
	return b.Count <= l.limit, nil
}

// Sweep removes buckets whose window has ended and returns how many were removed
func (l *FixedWindow) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.WindowStart) >= l.window {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps stale buckets every interval until ctx is done
func (l *FixedWindow) StartJanitor(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = l.window
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.Sweep(); n > 0 {
					logger.Debug("rate limit buckets swept", zap.Int("removed", n))
				}
			}
		}
	}()
}
