package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisPrefix = "propdesk:"

// Redis is a QueryCache shared between instances. Each kind has a generation
// counter that is part of every entry key; Invalidate bumps it so stale entries
// become unreachable and expire through their TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, kind, key string) ([]byte, error) {
	gen, err := c.generation(ctx, kind)
	if err != nil {
		return nil, err
	}
	val, err := c.client.Get(ctx, entryKey(kind, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return val, nil
}

// Set writes under gen's key space. If kind has since been invalidated the
// entry is unreachable and simply expires.
func (c *Redis) Set(ctx context.Context, kind, key string, gen int64, value []byte) error {
	if err := c.client.Set(ctx, entryKey(kind, gen, key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, kind string) error {
	if err := c.client.Incr(ctx, generationKey(kind)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", kind, err)
	}
	return nil
}

func (c *Redis) Generation(ctx context.Context, kind string) (int64, error) {
	return c.generation(ctx, kind)
}

func (c *Redis) generation(ctx context.Context, kind string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(kind)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func generationKey(kind string) string {
	return redisPrefix + "gen:" + kind
}

func entryKey(kind string, gen int64, key string) string {
	return fmt.Sprintf("%sq:%s:%d:%s", redisPrefix, kind, gen, key)
}
