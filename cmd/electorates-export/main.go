package main

import (
	"os"

	"github.com/joho/godotenv"

	"au-electorates/internal/dataset"
	"au-electorates/internal/logger"
)

// 文档注释：导出数据目录
// 背景：把 JSON 数据与各周期压缩包内的边界文件展开到 EXPORT_DIR，供静态托管或前端直接读取。
// 约束：目标文件以数据集时间为新鲜度标记；已是最新的文件跳过，EXPORT_OVERWRITE=true 时强制覆盖。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	src := dataset.DirFromEnv()
	dst := os.Getenv("EXPORT_DIR")
	if dst == "" {
		dst = "export"
	}
	overwrite := os.Getenv("EXPORT_OVERWRITE") == "true"
	rep, err := dataset.Export(src, dst, overwrite)
	if err != nil {
		l.Error("export_error", "src", src, "dst", dst, "err", err)
		os.Exit(1)
	}
	l.Info("export_done", "src", src, "dst", dst, "written", len(rep.Written), "skipped", len(rep.Skipped))
}
