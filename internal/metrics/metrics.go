package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electorates_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "electorates_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	NotFoundTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electorates_not_found_total",
		Help: "Total lookups that resolved to nothing, by kind",
	}, []string{"kind"})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "electorates_redis_hits_total",
		Help: "Total redis response cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "electorates_redis_misses_total",
		Help: "Total redis response cache misses",
	})
	MapCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electorates_mapcache_hits_total",
		Help: "Map cache hits by epoch",
	}, []string{"epoch"})
	MapCacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electorates_mapcache_misses_total",
		Help: "Map cache misses by epoch",
	}, []string{"epoch"})
	MapCacheDecodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electorates_mapcache_decodes_total",
		Help: "Archive entries decoded by epoch and result",
	}, []string{"epoch", "result"})
	MapDecodeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "electorates_mapcache_decode_duration_ms",
		Help:    "Archive entry decode duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"epoch"})
	GraphDivisions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "electorates_graph_divisions",
		Help: "Divisions in the loaded reference graph",
	})
	ExportFilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electorates_export_files_total",
		Help: "Files handled by dataset export, by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(NotFoundTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(MapCacheHitsTotal)
	prometheus.MustRegister(MapCacheMissesTotal)
	prometheus.MustRegister(MapCacheDecodesTotal)
	prometheus.MustRegister(MapDecodeDurationMs)
	prometheus.MustRegister(GraphDivisions)
	prometheus.MustRegister(ExportFilesTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
