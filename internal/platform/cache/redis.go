package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"phishtrace/internal/platform/errors"
)

// RedisCache stores JSON-encoded values in Redis under a key prefix,
// so several phishtrace processes can share attribution results.
type RedisCache[V any] struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCache wraps an existing client.
func NewRedisCache[V any](client redis.Cmdable, prefix string) *RedisCache[V] {
	return &RedisCache[V]{client: client, prefix: prefix}
}

// DialRedis parses a redis:// URL and returns a connected client.
func DialRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Mark(errors.ErrInvalidInput, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(errors.Mark(errors.ErrConnectionFailed, err), "redis ping %s", opts.Addr)
	}
	return client, nil
}

// Get returns the decoded value. A missing key is a miss, not an error.
func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, errors.Wrap(err, "redis get failure")
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, errors.Wrap(errors.Mark(errors.ErrInvalidResponse, err), "redis decode failure")
	}
	return value, true, nil
}

// Set encodes value as JSON and stores it with ttl.
func (c *RedisCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "redis encode failure")
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set failure")
	}
	return nil
}
