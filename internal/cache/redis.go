package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisTimeout bounds each Redis round trip.
const DefaultRedisTimeout = 2 * time.Second

// DefaultRedisPrefix namespaces dmxsync keys in a shared Redis.
const DefaultRedisPrefix = "dmxsync:"

// redisClient is the subset of *redis.Client used by RedisStore.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps blobs in Redis so several dmxsync instances can share the
// last good configuration.
type RedisStore struct {
	client  redisClient
	Prefix  string
	Timeout time.Duration
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{
		client:  client,
		Prefix:  DefaultRedisPrefix,
		Timeout: DefaultRedisTimeout,
	}
}

func (r *RedisStore) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	blob, err := r.client.Get(ctx, r.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return blob, true, nil
}

func (r *RedisStore) Set(key string, blob []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.Prefix+key, blob, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
