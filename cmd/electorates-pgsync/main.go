package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"au-electorates/internal/dataset"
	"au-electorates/internal/graph"
	"au-electorates/internal/logger"
	"au-electorates/internal/migrate"
	"au-electorates/internal/store"
	"au-electorates/internal/utils"
)

// 文档注释：把参考数据同步到 Postgres 镜像
// 背景：报表与外部系统通过 SQL 读取选区与议员；镜像由本工具按数据目录整体刷新。
// 约束：只需 JSON 数据，不读取边界压缩包；单事务写入，失败不留下半套数据。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	if err := run(); err != nil {
		l.Error("pgsync_failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	dir := dataset.DirFromEnv()
	g, err := graph.FromDir(dir).Initialize()
	if err != nil {
		return fmt.Errorf("graph build %s: %w", dir, err)
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	st := store.AttachDB(db)
	defer st.Close()

	timeout := 5 * time.Minute
	if s := os.Getenv("PG_SYNC_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			timeout = d
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	rep, err := st.Sync(ctx, g)
	if err != nil {
		return err
	}
	n, err := st.DivisionCount(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	logger.L().Info("pgsync_done", "divisions", rep.Divisions, "members", rep.Members, "rows", n)
	return nil
}
