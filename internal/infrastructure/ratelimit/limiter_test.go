package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func bucketOf(l *FixedWindow, clientKey string) (Bucket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[clientKey]
	if !ok {
		return Bucket{}, false
	}
	return *b, true
}

func TestFixedWindow_Allow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewFixedWindow(3, time.Minute).WithClock(clock.Now)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be admitted", i)
	}

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	// other clients are unaffected
	ok, _ = limiter.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)

	clock.Advance(59 * time.Second)
	ok, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	clock.Advance(time.Second)
	ok, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)

	bucket, found := bucketOf(limiter, "10.0.0.1")
	require.True(t, found)
	assert.Equal(t, 1, bucket.Count)
	assert.Equal(t, clock.Now(), bucket.WindowStart)
}

func TestFixedWindow_ConcurrentIncrements(t *testing.T) {
	const limit = 50
	limiter := NewFixedWindow(limit, time.Hour)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(context.Background(), "client"); ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(limit), admitted.Load())
	bucket, _ := bucketOf(limiter, "client")
	assert.Equal(t, 200, bucket.Count)
}

func TestFixedWindow_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewFixedWindow(1, time.Minute).WithClock(clock.Now)

	_, _ = limiter.Allow(context.Background(), "old")
	clock.Advance(30 * time.Second)
	_, _ = limiter.Allow(context.Background(), "new")
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, limiter.Sweep())
	_, found := bucketOf(limiter, "old")
	assert.False(t, found)
	_, found = bucketOf(limiter, "new")
	assert.True(t, found)
}

func TestFixedWindow_Janitor(t *testing.T) {
	limiter := NewFixedWindow(1, time.Millisecond)
	_, _ = limiter.Allow(context.Background(), "client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter.StartJanitor(ctx, 5*time.Millisecond, zap.NewNop())

	assert.Eventually(t, func() bool {
		_, found := bucketOf(limiter, "client")
		return !found
	}, time.Second, 5*time.Millisecond)
}

func TestRedisFixedWindow_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisFixedWindow(client, "ratelimit:inference", 2, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		ok, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, fmt.Sprintf("request %d", i))
	}
	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("ratelimit:inference:10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:inference:10.0.0.1"))

	mr.FastForward(time.Minute)

	ok, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisFixedWindow_RearmsCounterWithoutExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	// counter left over limit with no TTL by an interrupted writer
	require.NoError(t, mr.Set("ratelimit:default:10.0.0.1", "7"))
	limiter := NewRedisFixedWindow(client, "ratelimit:default", 2, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:default:10.0.0.1"))

	mr.FastForward(time.Minute)

	ok, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisFixedWindow_ExpiryNotExtendedByLaterHits(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisFixedWindow(client, "ratelimit:default", 5, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	mr.FastForward(40 * time.Second)
	_, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, mr.TTL("ratelimit:default:10.0.0.1"))
}

func TestRedisFixedWindow_BackendFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	limiter := NewRedisFixedWindow(client, "ratelimit:default", 2, time.Minute)

	ok, err := limiter.Allow(context.Background(), "10.0.0.1")

	assert.Error(t, err)
	assert.False(t, ok)
}
