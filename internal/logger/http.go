package logger

import (
	"log/slog"
	"net/http"
	"time"
)

// recorder 记录响应状态与字节数
type recorder struct {
	http.ResponseWriter
	code int
	n    int
}

func (r *recorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.n += n
	return n, err
}

// 文档注释：HTTP 访问日志中间件
// 背景：参考数据查询量大且重复，常规访问只在 Debug 级别输出；x-cache 头用于观察 Redis 响应缓存是否命中。
// 约束：不读取请求体；5xx 为 Warn，4xx 为 Info，其余 Debug。
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &recorder{ResponseWriter: w, code: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			lvl := slog.LevelDebug
			switch {
			case rec.code >= http.StatusInternalServerError:
				lvl = slog.LevelWarn
			case rec.code >= http.StatusBadRequest:
				lvl = slog.LevelInfo
			}
			l.Log(r.Context(), lvl, "http_access",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", rec.code,
				"bytes", rec.n,
				"cache", w.Header().Get("x-cache"),
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", r.RemoteAddr,
			)
		})
	}
}
