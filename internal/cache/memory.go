// Package cache provides result caches for resized images and a processor
// decorator that consults them.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process result cache with per-entry expiry.
// When maxEntries is reached, new results are not admitted until entries expire.
type MemoryCache struct {
	items      *gocache.Cache
	maxEntries int
}

// NewMemoryCache creates a cache whose entries live for ttl.
// A maxEntries of 0 or less means unbounded.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	cleanup := ttl * 2
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &MemoryCache{
		items:      gocache.New(ttl, cleanup),
		maxEntries: maxEntries,
	}
}

// Get returns the cached value for key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	return data, ok, nil
}

// Set stores value under key unless the cache is full.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	if c.maxEntries > 0 && c.items.ItemCount() >= c.maxEntries {
		c.items.DeleteExpired()
		if c.items.ItemCount() >= c.maxEntries {
			return nil
		}
	}
	c.items.SetDefault(key, value)
	return nil
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.items.Flush()
	return nil
}
