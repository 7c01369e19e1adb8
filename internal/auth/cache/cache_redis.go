package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"schemagate/internal/auth/metrics"
)

const (
	redisBackend   = "redis"
	redisKeyPrefix = "schemagate:credential:"
)

// RedisCache shares verification results between gateway replicas.
// Expiry is delegated to Redis key TTLs.
type RedisCache struct {
	client  redis.Cmdable
	metrics *metrics.Metrics
}

// NewRedis constructs a Redis-backed cache; metrics may be nil.
func NewRedis(client redis.Cmdable, m *metrics.Metrics) *RedisCache {
	return &RedisCache{client: client, metrics: m}
}

// Get loads the entry for key.
//
// Side effects: performs a Redis GET and records cache metrics.
//
// Errors: returns ErrNotFound on a miss; wraps Redis or JSON decode errors.
func (c *RedisCache) Get(ctx context.Context, key string) (Entry, error) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.RecordCacheLookup(redisBackend, metrics.ResultMiss)
			return Entry{}, ErrNotFound
		}
		c.metrics.RecordCacheLookup(redisBackend, metrics.ResultError)
		return Entry{}, fmt.Errorf("get credential cache: %w", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		c.metrics.RecordCacheLookup(redisBackend, metrics.ResultError)
		return Entry{}, err
	}
	if entry.Negative {
		c.metrics.RecordCacheLookup(redisBackend, metrics.ResultNegativeHit)
	} else {
		c.metrics.RecordCacheLookup(redisBackend, metrics.ResultHit)
	}
	return entry, nil
}

// Set writes the entry with a Redis TTL, overwriting any previous value.
//
// Errors: wraps JSON encode or Redis errors.
func (c *RedisCache) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(ctx, key)
	}
	payload, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set credential cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("delete credential cache: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

func encodeEntry(e Entry) ([]byte, error) {
	if !e.Negative && e.Identity == nil {
		return nil, fmt.Errorf("encode credential cache: positive entry without identity")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode credential cache: %w", err)
	}
	return payload, nil
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode credential cache: %w", err)
	}
	if !e.Negative && e.Identity == nil {
		return Entry{}, fmt.Errorf("decode credential cache: positive entry without identity")
	}
	return e, nil
}
