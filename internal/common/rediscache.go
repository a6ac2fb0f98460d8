package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared PageCache used when several app instances run behind one proxy.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(URL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(URL)
	if err != nil {
		return nil, fmt.Errorf("could not parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetPage(ctx context.Context, path string) ([]byte, bool) {
	page, err := c.client.Get(ctx, CacheKeyPage(path)).Bytes()
	if err != nil {
		return nil, false
	}
	return page, true
}

func (c *RedisCache) SetPage(ctx context.Context, path string, page []byte, ttl time.Duration) error {
	return c.client.Set(ctx, CacheKeyPage(path), page, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = CacheKeyPage(p)
	}

	err := c.client.Del(ctx, keys...).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, CacheKeyPage(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
