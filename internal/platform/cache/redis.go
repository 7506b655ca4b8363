package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a Store backed by a Redis instance, for deployments where several
// server processes share one artifact cache. The stored-at timestamp is
// packed as a big-endian unix-nano prefix on the payload so that value and
// timestamp stay atomic under concurrent writers.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis creates a Redis store. redisURL is a redis:// URL; prefix
// namespaces the keys (e.g. "hcuptools").
func NewRedis(redisURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	return &Redis{rdb: redis.NewClient(opts), prefix: prefix}, nil
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, time.Time, bool) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		return nil, time.Time{}, false
	}
	if len(raw) < 8 {
		return nil, time.Time{}, false
	}
	storedAt := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8])))
	return raw[8:], storedAt, true
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, key string, data []byte) error {
	raw := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(raw[:8], uint64(time.Now().UnixNano()))
	copy(raw[8:], data)
	if err := r.rdb.Set(ctx, r.key(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("cache: redis del %s: %w", key, err)
	}
	return nil
}

// Ping verifies connectivity, for startup health checks.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
