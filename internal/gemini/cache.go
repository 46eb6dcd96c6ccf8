package gemini

import (
	"context"
	"time"

	"recycle-right/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RecognitionCache 识别结果缓存；实现需并发安全，失败时静默降级
type RecognitionCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
}

const recognitionKeyPrefix = "recognise:"

// RedisCache 基于 Redis 的识别结果缓存
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache rdb 为空时返回 nil，调用方据此视为未启用
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, recognitionKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.FromContext(ctx).Warn("recognise_cache_get_error", "err", err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte) {
	if err := c.rdb.Set(ctx, recognitionKeyPrefix+key, val, c.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("recognise_cache_set_error", "err", err)
	}
}
