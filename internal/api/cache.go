package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"au-electorates/internal/logger"
	"au-electorates/internal/metrics"
)

// 响应缓存有效期；参考数据只随版本变化
const cacheTTL = 24 * time.Hour

// 文档注释：Redis JSON 响应缓存
// 背景：选区详情需要展开议员与政党，序列化结果在多实例间共享，减少重复构造。
// 约束：rc 为 nil 时视为关闭；Redis 错误只记录调试日志，不影响主流程。
func cacheGet(ctx context.Context, rc *redis.Client, key string) ([]byte, bool) {
	if rc == nil {
		return nil, false
	}
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.L().Debug("redis_get_error", "key", key, "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	metrics.RedisHitsTotal.Inc()
	return b, true
}

func cacheSet(ctx context.Context, rc *redis.Client, key string, b []byte) {
	if rc == nil {
		return
	}
	if err := rc.Set(ctx, key, b, cacheTTL).Err(); err != nil {
		logger.L().Debug("redis_set_error", "key", key, "err", err)
	}
}
