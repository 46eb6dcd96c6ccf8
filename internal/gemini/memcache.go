package gemini

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// 文档注释：进程内识别结果缓存（LRU + TTL）
// 约束：未启用 Redis 时使用；容量满时淘汰最久未访问项，过期项不再返回。
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache capacity<1 时返回 nil，调用方据此视为未启用
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity < 1 {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](capacity, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.lru.Get(key)
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte) {
	c.lru.Add(key, val)
}

// Len 当前缓存项数
func (c *MemoryCache) Len() int { return c.lru.Len() }
