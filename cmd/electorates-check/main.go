package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"au-electorates/internal/dataset"
	"au-electorates/internal/logger"
	"au-electorates/pkg/electorates"
)

// 文档注释：数据目录自检
// 背景：发布新数据前校验图可构建、每个周期存在的选区都有可解码的边界；CHECK_NAMES 可额外校验一组选区名称。
// 约束：任何一项失败即以非零状态退出，便于接入 CI；退出前释放压缩包。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	if err := run(); err != nil {
		l.Error("check_failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	l := logger.L()
	dir := dataset.DirFromEnv()
	svc, err := electorates.Open(dir)
	if err != nil {
		return err
	}
	defer svc.Close()

	start := time.Now()
	if err := svc.LoadAll(context.Background()); err != nil {
		return err
	}
	for e, s := range svc.Stats() {
		l.Info("check_epoch_ok", "epoch", string(e), "decodes", s.Decodes)
	}
	if names := os.Getenv("CHECK_NAMES"); names != "" {
		var list []string
		for _, n := range strings.Split(names, ",") {
			if n = strings.TrimSpace(n); n != "" {
				list = append(list, n)
			}
		}
		if err := svc.Validate(list...); err != nil {
			return err
		}
	}
	l.Info("check_done", "dir", dir, "divisions", len(svc.Divisions()), "ms", time.Since(start).Milliseconds())
	return nil
}
