// Package readcache is a read-through cache for report queries over the local
// cache. Entries expire after a fixed TTL and are dropped wholesale by
// Invalidate, which the engine calls after every successful mutation.
package readcache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Cache struct {
	lru *expirable.LRU[string, any]
	// generation guards against storing a value loaded before an
	// Invalidate that raced with the load.
	generation atomic.Uint64
}

// New returns a cache holding up to size entries for ttl. A ttl <= 0 returns
// a disabled cache that always loads.
func New(size int, ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{}
	}
	if size <= 0 {
		size = 128
	}
	return &Cache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

func (c *Cache) Enabled() bool { return c != nil && c.lru != nil }

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	if !c.Enabled() {
		return
	}
	c.generation.Add(1)
	c.lru.Purge()
}

func (c *Cache) Len() int {
	if !c.Enabled() {
		return 0
	}
	return c.lru.Len()
}

// Get returns the cached value for key or calls load and caches its result.
// Errors are never cached.
func Get[T any](c *Cache, key string, load func() (T, error)) (T, error) {
	if !c.Enabled() {
		return load()
	}
	if v, ok := c.lru.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	gen := c.generation.Load()
	v, err := load()
	if err != nil {
		return v, err
	}
	if c.generation.Load() == gen {
		c.lru.Add(key, v)
	}
	return v, nil
}
