package api

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	visitorBloomBits   = 1 << 20
	visitorBloomHashes = 4
	visitorBloomTTL    = 48 * time.Hour
)

// 文档注释：计算布隆过滤器位置
// 参数：data 为参与哈希的字节序列，m 为位图大小，k 为哈希次数。
// 约束：FNV64a 加索引前缀扰动生成 k 个位置。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(uint32(h.Sum64() % uint64(m)))
	}
	return pos
}

// 文档注释：检查并写入布隆过滤器位图
// 返回：true 表示首次见到（已写入位图）；false 表示已存在。
// 约束：rc 为 nil 时返回 false（无法去重则不计访客）。
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return false, nil
	}
	pipe := rc.Pipeline()
	cmds := make([]*redis.IntCmd, len(positions))
	for i, p := range positions {
		cmds[i] = pipe.GetBit(ctx, key, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	seen := true
	for _, c := range cmds {
		if c.Val() == 0 {
			seen = false
			break
		}
	}
	if seen {
		return false, nil
	}
	pipe = rc.Pipeline()
	for _, p := range positions {
		pipe.SetBit(ctx, key, p, 1)
	}
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return true, err
}

// newVisitor 报告该 IP 是否为当日首次出现
func newVisitor(ctx context.Context, rc *redis.Client, ip string, now time.Time) bool {
	if rc == nil || ip == "" {
		return false
	}
	key := "rr:visitors:" + now.UTC().Format("20060102")
	first, err := bloomCheckAndSet(ctx, rc, key, bloomPositions([]byte(ip), visitorBloomBits, visitorBloomHashes), visitorBloomTTL)
	if err != nil {
		return false
	}
	return first
}
