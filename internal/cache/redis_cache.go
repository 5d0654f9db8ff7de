package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps JSON values and counters in Redis. Keys are prefixed with
// the namespace so several deployments can share one instance.
type RedisCache struct {
	rdb       *redis.Client
	namespace string
}

func NewRedisCache(rdb *redis.Client, namespace string) *RedisCache {
	return &RedisCache{rdb: rdb, namespace: namespace}
}

func (c *RedisCache) key(k string) string {
	if c.namespace == "" {
		return k
	}
	return c.namespace + ":" + k
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	k := c.key(key)
	b, err := c.rdb.Get(ctx, k).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if json.Unmarshal(b, dst) != nil {
		// unreadable entries are dropped and count as a miss
		_ = c.rdb.Del(ctx, k).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(key), b, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, c.key(key)).Result()
}

func (c *RedisCache) Counter(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Get(ctx, c.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
