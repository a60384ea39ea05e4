package auth

import (
	"sync"
	"sync/atomic"
	"time"
)

// KeyCache is a TTL-based in-memory cache with stale-while-revalidate
// for resolved API keys. Uses sync.Map for lock-free reads on the hot path.
type KeyCache struct {
	store sync.Map // map[string]*keyCacheEntry
	ttl   time.Duration
}

type keyCacheEntry struct {
	org        *OrgContext
	expiresAt  time.Time
	refreshing atomic.Bool
}

// KeyCacheGetResult holds the result of a cache lookup.
type KeyCacheGetResult struct {
	Org          *OrgContext
	Hit          bool
	NeedsRefresh bool
}

// NewKeyCache creates a cache with the given TTL.
func NewKeyCache(ttl time.Duration) *KeyCache {
	return &KeyCache{ttl: ttl}
}

// Get performs a non-blocking cache lookup.
func (c *KeyCache) Get(apiKey string) KeyCacheGetResult {
	val, ok := c.store.Load(apiKey)
	if !ok {
		return KeyCacheGetResult{Hit: false}
	}

	entry := val.(*keyCacheEntry)
	now := time.Now()

	if now.Before(entry.expiresAt) {
		return KeyCacheGetResult{
			Org: entry.org,
			Hit: true,
		}
	}

	needsRefresh := entry.refreshing.CompareAndSwap(false, true)
	return KeyCacheGetResult{
		Org:          entry.org,
		Hit:          true,
		NeedsRefresh: needsRefresh,
	}
}

// Set stores an org context with a fresh TTL.
func (c *KeyCache) Set(apiKey string, org *OrgContext) {
	c.store.Store(apiKey, &keyCacheEntry{
		org:       org,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete removes an entry from the cache.
func (c *KeyCache) Delete(apiKey string) {
	c.store.Delete(apiKey)
}
