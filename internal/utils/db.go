// 包 utils：PostgreSQL 与 Redis 连接工具，统一环境变量读取
package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

// envOr：读取环境变量，空值回退到默认
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n >= 0 {
		return n
	}
	return def
}

// BuildPostgresDSNFromEnv：PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE 组装 DSN，缺省连本机
// 约束：用户名与密码按 URL 规则转义，密码可含 @ : / 等字符
func BuildPostgresDSNFromEnv() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     envOr("PG_HOST", "localhost") + ":" + envOr("PG_PORT", "5432"),
		Path:     "/" + envOr("PG_DB", "electorates"),
		RawQuery: "sslmode=" + envOr("PG_SSLMODE", "disable"),
	}
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(envOr("PG_USER", "postgres"), pass)
	} else {
		u.User = url.User(envOr("PG_USER", "postgres"))
	}
	return u.String()
}

// OpenPostgresFromEnv：按 PG_* 环境变量打开连接池；镜像同步为批量写入，默认连接数较小
// 约束：sql.Open 不建立连接，调用方需自行 Ping
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 5))
	return db, nil
}
