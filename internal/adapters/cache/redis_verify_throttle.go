package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVerifyThrottle is a fixed-window counter over the public verification
// endpoint, keyed by caller origin. The first increment in a window sets the
// window expiry; once the counter passes the threshold the caller is refused
// until the window rolls over.
type RedisVerifyThrottle struct {
	client *redis.Client
	prefix string
}

func NewRedisVerifyThrottle(client *redis.Client) *RedisVerifyThrottle {
	return &RedisVerifyThrottle{client: client, prefix: "certsvc:throttle:"}
}

func (t *RedisVerifyThrottle) Allow(ctx context.Context, key string, threshold int, window time.Duration) (bool, error) {
	redisKey := t.prefix + key
	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("verify throttle incr: %w", err)
	}
	return incr.Val() <= int64(threshold), nil
}
