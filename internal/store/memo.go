// Package store provides the in-memory metadata memo used by the resolver.
package store

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"linkbridge/pkg/musiclink"
)

// MetadataCache remembers the artist and title behind recently resolved source
// links. Entries expire after a TTL and the least recently used entry is
// evicted once the cache is full. A nil *MetadataCache is a valid, disabled cache.
type MetadataCache struct {
	lru    *expirable.LRU[string, musiclink.TrackReference]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMetadataCache creates a cache holding up to size entries for ttl each.
// A size of zero or less disables caching and returns nil.
func NewMetadataCache(size int, ttl time.Duration) *MetadataCache {
	if size <= 0 {
		return nil
	}
	return &MetadataCache{
		lru: expirable.NewLRU[string, musiclink.TrackReference](size, nil, ttl),
	}
}

// Get returns the cached metadata for link on platform.
func (c *MetadataCache) Get(platform musiclink.Platform, link string) (musiclink.TrackReference, bool) {
	if c == nil {
		return musiclink.TrackReference{}, false
	}
	ref, ok := c.lru.Get(cacheKey(platform, link))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return ref, ok
}

// Add stores ref for link on platform. Incomplete references are ignored.
func (c *MetadataCache) Add(platform musiclink.Platform, link string, ref *musiclink.TrackReference) {
	if c == nil || !ref.Valid() {
		return
	}
	c.lru.Add(cacheKey(platform, link), *ref)
}

// Len returns the number of live entries.
func (c *MetadataCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Stats returns the hit and miss counts since creation.
func (c *MetadataCache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Purge removes all entries.
func (c *MetadataCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func cacheKey(platform musiclink.Platform, link string) string {
	return platform.String() + "|" + strings.TrimSpace(link)
}
