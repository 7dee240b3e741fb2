// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"au-electorates/internal/api"
	"au-electorates/internal/dataset"
	"au-electorates/internal/logger"
	"au-electorates/internal/metrics"
	"au-electorates/internal/middleware"
	"au-electorates/internal/migrate"
	"au-electorates/internal/store"
	"au-electorates/internal/utils"
	"au-electorates/internal/version"
	"au-electorates/pkg/admingate"
	"au-electorates/pkg/electorates"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit, "dataset", version.Dataset)
	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)

	dataDir := dataset.DirFromEnv()
	l.Debug("config_data_dir", "dir", dataDir)
	svc, err := electorates.Open(dataDir)
	if err != nil {
		l.Error("dataset_open_error", "dir", dataDir, "err", err)
		os.Exit(1)
	}
	defer svc.Close()
	l.Info("dataset_open_ok", "divisions", len(svc.Divisions()), "elections", len(svc.Elections()))

	// 背景：Postgres 仅作为只读镜像供报表使用；未开启同步时不连接数据库
	if os.Getenv("PG_SYNC_ON_START") == "true" {
		go func() {
			if err := syncPostgres(svc); err != nil {
				l.Error("pg_sync_error", "err", err)
			}
		}()
	} else {
		l.Info("pg_sync_skipped")
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	// 预热：后台解码全部周期的边界；缺失条目只记录错误，查询仍可按需解码
	if os.Getenv("MAPCACHE_WARM_ON_START") == "true" {
		go func() {
			start := time.Now()
			if err := svc.LoadAll(context.Background()); err != nil {
				l.Error("mapcache_warm_error", "err", err)
				return
			}
			l.Info("mapcache_warm_done", "ms", time.Since(start).Milliseconds())
		}()
	}

	gate := admingate.NewFromEnv(logger.For("admingate"))
	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(svc, rc, gate)
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc(apiBase+"/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("ok " + version.Commit))
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "electorates.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			_ = svc.Close()
			os.Exit(1)
		}
		// 可选：启动HTTP重定向到HTTPS（不改变HTTPS运行端口）
		if os.Getenv("TLS_REDIRECT_ENABLE") == "true" {
			go redirectToHTTPS(addr)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		_ = s.ListenAndServeTLS(certPath, keyPath)
		return
	}
	l.Info("listening", "addr", addr)
	_ = s.ListenAndServe()
}

// syncPostgres：建表并把图整体写入镜像库
func syncPostgres(svc *electorates.Service) error {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return err
	}
	st := store.AttachDB(db)
	defer st.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return err
	}
	_, err = st.Sync(ctx, svc.Graph())
	return err
}

func redirectToHTTPS(addr string) {
	l := logger.L()
	redirAddr := os.Getenv("TLS_REDIRECT_ADDR")
	if redirAddr == "" {
		redirAddr = ":80"
	}
	httpsPort := strings.TrimPrefix(addr, ":")
	httpRedir := http.NewServeMux()
	httpRedir.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// 替换目标端口为HTTPS服务端口
		baseHost := r.Host
		if i := strings.LastIndex(baseHost, ":"); i != -1 {
			baseHost = baseHost[:i]
		}
		targetHost := baseHost
		if httpsPort != "" {
			targetHost = baseHost + ":" + httpsPort
		}
		target := "https://" + targetHost + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		l.Debug("http_redirect", "from", r.Host, "to", target)
	})
	l.Info("http_redirect_listening", "addr", redirAddr, "to", "https"+addr)
	_ = http.ListenAndServe(redirAddr, logger.AccessMiddleware(l)(httpRedir))
}
