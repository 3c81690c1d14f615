package cache

import (
	"context"
	"time"

	"ai-dms-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// MemoryContextCache keeps extracted file text in process, keyed by file id.
type MemoryContextCache struct {
	cache *cache.Cache
}

func NewMemoryContextCache(ttl time.Duration) contract.ContextCache {
	return &MemoryContextCache{cache: cache.New(ttl, 10*time.Minute)}
}

func (c *MemoryContextCache) Get(_ context.Context, fileID string) (string, bool) {
	if x, found := c.cache.Get(fileID); found {
		return x.(string), true
	}
	return "", false
}

func (c *MemoryContextCache) Set(_ context.Context, fileID, text string) {
	c.cache.Set(fileID, text, cache.DefaultExpiration)
}

func (c *MemoryContextCache) Delete(_ context.Context, fileID string) {
	c.cache.Delete(fileID)
}
