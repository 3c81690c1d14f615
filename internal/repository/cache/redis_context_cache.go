package cache

import (
	"context"
	"errors"
	"time"

	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const contextKeyPrefix = "context:file:"

// RedisContextCache shares extracted text between server instances. Redis
// failures degrade to cache misses.
type RedisContextCache struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.ILogger
}

func NewRedisContextCache(rdb *redis.Client, ttl time.Duration, log logger.ILogger) contract.ContextCache {
	return &RedisContextCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *RedisContextCache) Get(ctx context.Context, fileID string) (string, bool) {
	text, err := c.rdb.Get(ctx, contextKeyPrefix+fileID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("CACHE", "Redis get failed", map[string]interface{}{"file_id": fileID, "error": err.Error()})
		}
		return "", false
	}
	return text, true
}

func (c *RedisContextCache) Set(ctx context.Context, fileID, text string) {
	if err := c.rdb.Set(ctx, contextKeyPrefix+fileID, text, c.ttl).Err(); err != nil {
		c.log.Warn("CACHE", "Redis set failed", map[string]interface{}{"file_id": fileID, "error": err.Error()})
	}
}

func (c *RedisContextCache) Delete(ctx context.Context, fileID string) {
	if err := c.rdb.Del(ctx, contextKeyPrefix+fileID).Err(); err != nil {
		c.log.Warn("CACHE", "Redis delete failed", map[string]interface{}{"file_id": fileID, "error": err.Error()})
	}
}
