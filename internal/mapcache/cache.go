// 包 mapcache：按周期懒加载并缓存边界地图，保证同一条目在并发下只解码一次
package mapcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"au-electorates/internal/archive"
	"au-electorates/internal/logger"
	"au-electorates/internal/metrics"
	"au-electorates/internal/model"
)

const (
	divisionsPrefix = "divisions/"
	statesPrefix    = "states/"
	countryEntry    = "australia.geojson"
	geojsonSuffix   = ".geojson"
)

// Stats：缓存命中统计快照
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Decodes int64 `json:"decodes"`
}

// Cache：单个周期的边界地图缓存
type Cache struct {
	epoch     model.Epoch
	ar        archive.Archive
	normalize func(string) (string, bool)

	docs sync.Map
	sf   singleflight.Group

	hits, misses, decodes atomic.Int64
}

// 文档注释：创建周期缓存
// 背景：选区键可能是全名或任意大小写的简称，normalize 负责归一化为简称；为空时仅做小写化。
// 约束：Cache 不拥有 normalize 的数据；archive 由 Close 关闭。
func New(epoch model.Epoch, ar archive.Archive, normalize func(string) (string, bool)) *Cache {
	return &Cache{epoch: epoch, ar: ar, normalize: normalize}
}

// Epoch 返回缓存所属周期
func (c *Cache) Epoch() model.Epoch { return c.epoch }

// 文档注释：键解析为选区简称
// 背景：简称直接拼入条目路径 divisions/<short>.geojson。
// 约束：配置了 normalize 时只接受能解析的名称；未配置时取小写键。结果必须是单个路径段（不含 / \ 或 ..），
// 否则视为不存在，避免读到州或全国条目并当作选区缓存。
func (c *Cache) shortName(key string) (string, bool) {
	short := strings.ToLower(strings.TrimSpace(key))
	if c.normalize != nil {
		var ok bool
		if short, ok = c.normalize(key); !ok {
			return "", false
		}
	}
	if short == "" || short == "." || strings.ContainsAny(short, `/\`) || strings.Contains(short, "..") {
		return "", false
	}
	return short, true
}

// Division：按选区名或简称返回边界
func (c *Cache) Division(key string) (*Document, error) {
	short, ok := c.shortName(key)
	if !ok {
		metrics.NotFoundTotal.WithLabelValues("map").Inc()
		return nil, fmt.Errorf("%w: %s division %q", model.ErrMapNotFound, c.epoch, key)
	}
	return c.get(divisionsPrefix + short + geojsonSuffix)
}

// State：州或领地的整体边界
func (c *Cache) State(st model.State) (*Document, error) {
	return c.get(statesPrefix + strings.ToLower(string(st)) + geojsonSuffix)
}

// Country：全国边界
func (c *Cache) Country() (*Document, error) { return c.get(countryEntry) }

// 文档注释：带单飞保护的读取
// 背景：首次访问时解码，之后直接返回缓存；不持有全局锁，不同键的解码可并行。
// 约束：同一键的并发首访只触发一次解码，singleflight 回调内再次检查缓存以覆盖"刚写入"的窗口；
// 解码失败不缓存，也不自动重试。
func (c *Cache) get(name string) (*Document, error) {
	ep := string(c.epoch)
	if v, ok := c.docs.Load(name); ok {
		c.hits.Add(1)
		metrics.MapCacheHitsTotal.WithLabelValues(ep).Inc()
		return v.(*Document), nil
	}
	c.misses.Add(1)
	metrics.MapCacheMissesTotal.WithLabelValues(ep).Inc()
	v, err, _ := c.sf.Do(name, func() (any, error) {
		if v, ok := c.docs.Load(name); ok {
			return v, nil
		}
		doc, err := c.decodeEntry(name)
		if err != nil {
			return nil, err
		}
		c.docs.Store(name, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (c *Cache) decodeEntry(name string) (*Document, error) {
	ep := string(c.epoch)
	entry := name
	b, err := c.ar.Read(entry)
	if errors.Is(err, archive.ErrEntryNotFound) {
		entry = name + gzSuffix
		b, err = c.ar.Read(entry)
	}
	if errors.Is(err, archive.ErrEntryNotFound) {
		metrics.NotFoundTotal.WithLabelValues("map").Inc()
		return nil, fmt.Errorf("%w: %s %s", model.ErrMapNotFound, c.epoch, name)
	}
	if err != nil {
		return nil, err
	}
	start := time.Now()
	doc, err := decode(entry, b)
	c.decodes.Add(1)
	metrics.MapDecodeDurationMs.WithLabelValues(ep).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.MapCacheDecodesTotal.WithLabelValues(ep, "corrupt").Inc()
		logger.For("mapcache").Warn("mapcache_decode_failed", "epoch", ep, "entry", entry, "err", err)
		return nil, err
	}
	metrics.MapCacheDecodesTotal.WithLabelValues(ep, "ok").Inc()
	logger.For("mapcache").Debug("mapcache_decoded", "epoch", ep, "entry", entry, "type", doc.Type, "features", doc.Features, "bytes", len(doc.Raw))
	return doc, nil
}

func loadParallel() int {
	if v, err := strconv.Atoi(os.Getenv("MAPCACHE_LOAD_PARALLEL")); err == nil && v > 0 {
		return v
	}
	return runtime.NumCPU()
}

// 文档注释：预热全部边界
// 背景：服务启动或健康检查时一次性解码压缩包内的全部条目，并确认 expected 中每个选区都有边界。
// 约束：
// - 并行度由 MAPCACHE_LOAD_PARALLEL 控制（默认 CPU 数）；与并发查询安全共存，重复调用幂等；
// - expected 中缺失的选区汇总为一个 ErrMissingEntry 错误；损坏条目立即返回 ErrCorruptEntry。
func (c *Cache) LoadAll(ctx context.Context, expected []string) error {
	start := time.Now()
	names := map[string]struct{}{}
	for _, e := range c.ar.Entries() {
		base := strings.TrimSuffix(e, gzSuffix)
		if base == countryEntry || (strings.HasSuffix(base, geojsonSuffix) && singleSegment(base)) {
			names[base] = struct{}{}
		}
	}
	var (
		mu      sync.Mutex
		missing []string
	)
	for _, key := range expected {
		short, ok := c.shortName(key)
		if !ok {
			missing = append(missing, key)
			continue
		}
		names[divisionsPrefix+short+geojsonSuffix] = struct{}{}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadParallel())
	for name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := c.get(name)
			if errors.Is(err, model.ErrMapNotFound) {
				mu.Lock()
				missing = append(missing, name)
				mu.Unlock()
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s: %s", model.ErrMissingEntry, c.epoch, strings.Join(missing, ", "))
	}
	logger.For("mapcache").Info("mapcache_load_all_done", "epoch", string(c.epoch), "entries", len(names), "ms", time.Since(start).Milliseconds())
	return nil
}

// singleSegment：divisions/<x>.geojson 或 states/<x>.geojson，且 x 不含子路径
func singleSegment(name string) bool {
	for _, prefix := range []string{divisionsPrefix, statesPrefix} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			return !strings.Contains(rest, "/") && !strings.Contains(rest, "..")
		}
	}
	return false
}

// Stats 返回计数快照
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Decodes: c.decodes.Load()}
}

// LoadedDivisions 返回已缓存边界的选区简称（有序）
func (c *Cache) LoadedDivisions() []string { return c.loaded(divisionsPrefix) }

// LoadedStates 返回已缓存边界的州代码（小写，有序）
func (c *Cache) LoadedStates() []string { return c.loaded(statesPrefix) }

func (c *Cache) loaded(prefix string) []string {
	var out []string
	c.docs.Range(func(k, _ any) bool {
		if s, ok := strings.CutPrefix(k.(string), prefix); ok {
			out = append(out, strings.TrimSuffix(s, geojsonSuffix))
		}
		return true
	})
	sort.Strings(out)
	return out
}

// Close 关闭底层压缩包
func (c *Cache) Close() error { return c.ar.Close() }
