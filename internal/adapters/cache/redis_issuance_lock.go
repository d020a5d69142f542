package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIssuanceLockStore serializes concurrent issuance attempts for the same
// (participant, event) pair with SET NX. The lock is advisory; the partial
// unique index in Postgres remains the hard guarantee if Redis drops the key.
type RedisIssuanceLockStore struct {
	client *redis.Client
	prefix string
}

func NewRedisIssuanceLockStore(client *redis.Client) *RedisIssuanceLockStore {
	return &RedisIssuanceLockStore{client: client, prefix: "certsvc:lock:"}
}

func (s *RedisIssuanceLockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire issuance lock: %w", err)
	}
	return ok, nil
}

func (s *RedisIssuanceLockStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("release issuance lock: %w", err)
	}
	return nil
}
