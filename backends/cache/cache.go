package cache

import (
	"time"

	gcache "github.com/patrickmn/go-cache"
)

const (
	SpotifyTokenPrefix = "spotify-token"

	DefaultCleanupInterval = time.Minute
)

type ICache interface {
	// Set will add OR overwrite an element; a non-positive exp means the
	// element never expires.
	Set(key string, value interface{}, exp time.Duration)
	Get(key string) (value interface{}, ok bool)
	GetString(key string) (value string, ok bool)
	Remove(key string) bool
}

type Cache struct {
	*gcache.Cache
}

func New() (*Cache, error) {
	return &Cache{
		Cache: gcache.New(gcache.NoExpiration, DefaultCleanupInterval),
	}, nil
}

func (c *Cache) Set(key string, value interface{}, exp time.Duration) {
	if exp <= 0 {
		exp = gcache.NoExpiration
	}

	c.Cache.Set(key, value, exp)
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(key)
}

// GetString returns ok only for a present, non-empty string value.
func (c *Cache) GetString(key string) (string, bool) {
	v, ok := c.Cache.Get(key)
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}

	return s, true
}

func (c *Cache) Remove(key string) bool {
	if _, ok := c.Cache.Get(key); !ok {
		return false
	}

	c.Cache.Delete(key)

	return true
}
