package common

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// PageCache stores rendered public pages keyed by request path.
type PageCache interface {
	GetPage(ctx context.Context, path string) ([]byte, bool)
	SetPage(ctx context.Context, path string, page []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, paths ...string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

type Cache struct {
	*cache.Cache
}

func NewCache(expirationTime, cleanupTime time.Duration) *Cache {
	return &Cache{cache.New(expirationTime, cleanupTime)}
}

func (c *Cache) Set(key string, value interface{}, expiration ...time.Duration) {
	if len(expiration) > 0 {
		c.Cache.Set(key, value, expiration[0])
		return
	}
	c.Cache.Set(key, value, cache.DefaultExpiration)
}

// Add stores value only if the key is absent or expired, and errors otherwise.
func (c *Cache) Add(key string, value interface{}, expiration ...time.Duration) error {
	if len(expiration) > 0 {
		return c.Cache.Add(key, value, expiration[0])
	}
	return c.Cache.Add(key, value, cache.DefaultExpiration)
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(key)
}

func (c *Cache) Flush() {
	c.Cache.Flush()
}

func (c *Cache) GetPage(_ context.Context, path string) ([]byte, bool) {
	v, ok := c.Cache.Get(CacheKeyPage(path))
	if !ok {
		return nil, false
	}
	page, ok := v.([]byte)
	return page, ok
}

func (c *Cache) SetPage(_ context.Context, path string, page []byte, ttl time.Duration) error {
	c.Set(CacheKeyPage(path), page, ttl)
	return nil
}

func (c *Cache) Invalidate(_ context.Context, paths ...string) error {
	for _, p := range paths {
		c.Delete(CacheKeyPage(p))
	}
	return nil
}

func (c *Cache) InvalidatePrefix(_ context.Context, prefix string) error {
	key := CacheKeyPage(prefix)
	for k := range c.Items() {
		if strings.HasPrefix(k, key) {
			c.Delete(k)
		}
	}
	return nil
}

func CacheKeyPage(path string) string {
	return "page:" + path
}

func CacheKeyLimiter(scope, ip string) string {
	return "limiter:" + scope + ":" + ip
}
