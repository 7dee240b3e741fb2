package utils

import (
	"os"

	"github.com/redis/go-redis/v9"

	"au-electorates/internal/logger"
)

// OpenRedis：使用地址与密码打开 Redis 客户端；地址为空返回 nil
func OpenRedis(addr, pass string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass})
}

// 文档注释：按环境变量打开响应缓存用的 Redis 客户端
// 背景：REDIS_HOST/REDIS_PORT/REDIS_PASS/REDIS_DB 与 Postgres 配置同风格；客户端懒连接，不可用时只影响缓存命中。
// 约束：REDIS_ENABLE=false 时返回 nil（响应缓存关闭）；REDIS_DB 非法时回退到 0。
func OpenRedisFromEnv() *redis.Client {
	if os.Getenv("REDIS_ENABLE") == "false" {
		return nil
	}
	addr := envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379")
	db := envInt("REDIS_DB", 0)
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
}
