package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow increments the counter and (re)arms its expiry whenever the key has none,
// so a counter can never outlive its window.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisFixedWindow keeps fixed-window counters in Redis under <prefix>:<client>
type RedisFixedWindow struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

// NewRedisFixedWindow creates a Redis-backed limiter
func NewRedisFixedWindow(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisFixedWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisFixedWindow{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow increments the client's counter, starting the window on the first hit
func (l *RedisFixedWindow) Allow(ctx context.Context, clientKey string) (bool, error) {
	key := l.prefix + ":" + clientKey

	count, err := incrWindow.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit increment: %w", err)
	}

	return count <= int64(l.limit), nil
}
