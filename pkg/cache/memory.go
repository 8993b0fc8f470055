package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache keeps artifacts in a map. It is safe for concurrent use and
// evicts the oldest entry once maxEntries is reached.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	order      []string
	maxEntries int
}

type memoryEntry struct {
	artifact  Artifact
	expiresAt time.Time
}

// NewMemoryCache creates an in-process cache holding at most maxEntries
// values. A maxEntries of zero or less means unbounded.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
	}
}

// Get returns the stored artifact. Its Data is shared with the cache and
// must not be modified.
func (c *MemoryCache) Get(ctx context.Context, key string) (Artifact, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Artifact{}, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.remove(key)
		return Artifact{}, false, nil
	}
	return e.artifact, true, nil
}

// Set stores a with a private copy of its Data.
func (c *MemoryCache) Set(ctx context.Context, key string, a Artifact, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a.Data = append([]byte(nil), a.Data...)
	e := memoryEntry{artifact: a}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	if _, ok := c.entries[key]; !ok {
		if c.maxEntries > 0 && len(c.order) >= c.maxEntries {
			c.remove(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = e
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close does nothing for memory cache.
func (c *MemoryCache) Close() error {
	return nil
}

func (c *MemoryCache) remove(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Ensure MemoryCache implements Cache.
var _ Cache = (*MemoryCache)(nil)
