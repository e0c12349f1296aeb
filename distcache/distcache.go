// Package distcache shares computed analysis summaries across worker
// processes through Redis, so two workers analysing the same bytecode don't
// redo the same dominance/loop computation. It is a thin, TTL'd cache: a
// miss just means the caller recomputes and calls Put.
package distcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/txpull/flowcore/options"
)

// Cache wraps a Redis client scoped to analysis-summary keys.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithAddr overrides the Redis server address.
func WithAddr(addr string) Option {
	return func(c *Cache) { c.client.Options().Addr = addr }
}

// WithPassword sets the Redis auth password.
func WithPassword(password string) Option {
	return func(c *Cache) { c.client.Options().Password = password }
}

// WithDB selects the Redis logical database index.
func WithDB(db int) Option {
	return func(c *Cache) { c.client.Options().DB = db }
}

// New connects to Redis and returns a Cache. It pings the server before
// returning so callers learn about a bad address immediately.
func New(ctx context.Context, opts options.DistCache, extra ...Option) (*Cache, error) {
	c := &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:            opts.Addr,
			Password:        opts.Password,
			DB:              opts.DB,
			MaxRetries:      opts.MaxRetries,
			MinRetryBackoff: opts.MinRetryBackoff * time.Millisecond,
			MaxRetryBackoff: opts.MaxRetryBackoff * time.Millisecond,
		}),
		ttl: opts.TTL * time.Minute,
	}

	for _, opt := range extra {
		opt(c)
	}

	if resp := c.client.Ping(ctx); resp.Err() != nil {
		return nil, resp.Err()
	}

	return c, nil
}

// Get fetches the raw bytes stored under key, typically a gob-encoded
// summary produced by analysiscache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return []byte(result), nil
}

// Put stores value under key with the cache's configured TTL.
func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// Exists reports whether key is currently present in the cache.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return resp == 1, nil
}
