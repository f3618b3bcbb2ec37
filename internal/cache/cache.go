// Package cache keeps recently computed extraction results in memory so identical
// content is not re-scanned.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/ctxextract/pkg/types"
)

// DefaultSize is used when a non-positive size is requested
const DefaultSize = 4096

// Cache provides in-memory LRU caching of extracted contexts keyed by language and content hash
type Cache struct {
	cache *lru.Cache[string, types.ExtractedContext]
}

// New creates a new cache with LRU eviction
func New(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultSize
	}
	cache, err := lru.New[string, types.ExtractedContext](maxLen)
	if err != nil {
		// Only fails for non-positive sizes
		cache, _ = lru.New[string, types.ExtractedContext](DefaultSize)
	}
	return &Cache{cache: cache}
}

// Key builds the cache key. The language is part of the key because the same content
// under a different extension runs different scanners.
func Key(lang types.Language, codeHash string) string {
	return string(lang) + ":" + codeHash
}

// Get returns a deep copy so callers cannot mutate the cached value
func (c *Cache) Get(key string) (types.ExtractedContext, bool) {
	ec, ok := c.cache.Get(key)
	if !ok {
		return types.ExtractedContext{}, false
	}
	return ec.Clone(), true
}

// Set stores a copy of ec
func (c *Cache) Set(key string, ec types.ExtractedContext) {
	c.cache.Add(key, ec.Clone())
}

// Size returns the number of cached entries
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}
