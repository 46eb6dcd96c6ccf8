// 包 utils：Redis/PostgreSQL 连接与证书工具，统一环境变量读取
package utils

import (
	"os"
	"strconv"

	"recycle-right/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis 使用地址与密码打开 Redis 客户端；地址为空返回 nil
func OpenRedis(addr, pass string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass})
}

// OpenRedisFromEnv：按 REDIS_ENABLE 从环境变量打开 Redis 客户端
// 约束：REDIS_ENABLE 不为 true 时返回 nil（调用方视为禁用）；REDIS_DB 解析失败回退到 0。
func OpenRedisFromEnv() *redis.Client {
	if os.Getenv("REDIS_ENABLE") != "true" {
		return nil
	}
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	addr := host + ":" + port
	db := 0
	if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil && n >= 0 {
		db = n
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
}
