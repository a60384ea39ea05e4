package settings

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dbforge/assistant-gate/internal/optin"
)

// LevelCache is a TTL-based in-memory cache with stale-while-revalidate
// for org opt-in levels. Uses sync.Map for lock-free reads on the hot path.
type LevelCache struct {
	store sync.Map // map[string]*levelCacheEntry
	ttl   time.Duration
}

type levelCacheEntry struct {
	level      optin.Level
	expiresAt  time.Time
	refreshing atomic.Bool
}

// CacheGetResult holds the result of a cache lookup.
type CacheGetResult struct {
	Level        optin.Level
	Hit          bool // true if a value was found (fresh or stale)
	NeedsRefresh bool // true if expired; caller should refresh in background
}

// NewLevelCache creates a cache with the given TTL.
func NewLevelCache(ttl time.Duration) *LevelCache {
	return &LevelCache{ttl: ttl}
}

// Get performs a non-blocking cache lookup.
// Returns stale entries with NeedsRefresh=true when expired.
func (c *LevelCache) Get(orgID string) CacheGetResult {
	val, ok := c.store.Load(orgID)
	if !ok {
		return CacheGetResult{Hit: false}
	}

	entry := val.(*levelCacheEntry)
	now := time.Now()

	if now.Before(entry.expiresAt) {
		return CacheGetResult{
			Level: entry.level,
			Hit:   true,
		}
	}

	// Stale hit: signal refresh needed (only one goroutine wins the CAS)
	needsRefresh := entry.refreshing.CompareAndSwap(false, true)
	return CacheGetResult{
		Level:        entry.level,
		Hit:          true,
		NeedsRefresh: needsRefresh,
	}
}

// Set stores an org's level with a fresh TTL.
func (c *LevelCache) Set(orgID string, level optin.Level) {
	c.store.Store(orgID, &levelCacheEntry{
		level:     level,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete removes an entry from the cache.
func (c *LevelCache) Delete(orgID string) {
	c.store.Delete(orgID)
}
