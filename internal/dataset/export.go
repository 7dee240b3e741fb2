package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"au-electorates/internal/archive"
	"au-electorates/internal/logger"
	"au-electorates/internal/metrics"
	"au-electorates/internal/model"
	"au-electorates/internal/version"
)

// exportMu 串行化导出路径，避免并发导出写同一目录
var exportMu sync.Mutex

// ExportReport：一次导出的结果统计（相对目标目录的路径）
type ExportReport struct {
	Written []string
	Skipped []string
}

// 文档注释：将数据集写出到目录
// 背景：供外部工具直接读取 JSON 与 GeoJSON；地图压缩包逐条解出到 maps/<epoch>/ 下。
// 约束：所有写出文件的修改时间固定为 version.DatasetTime()；目标文件修改时间不早于该标记时视为同版或更新，
// 除非 overwrite 为 true 否则跳过，使重复导出幂等且不覆盖更新的数据。
func Export(srcDir, dstDir string, overwrite bool) (ExportReport, error) {
	exportMu.Lock()
	defer exportMu.Unlock()

	l := logger.For("export")
	marker := version.DatasetTime()
	var rep ExportReport
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return rep, err
	}
	for _, name := range []string{DivisionsFile, PartiesFile, LocalitiesFile} {
		b, err := os.ReadFile(filepath.Join(srcDir, name))
		if errors.Is(err, fs.ErrNotExist) && name == LocalitiesFile {
			continue
		}
		if err != nil {
			return rep, err
		}
		if err := writeFresh(dstDir, name, b, marker, overwrite, &rep); err != nil {
			return rep, err
		}
	}
	for _, e := range model.Epochs {
		p := MapArchivePath(srcDir, e)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			l.Warn("export_archive_absent", "epoch", e, "path", p)
			continue
		}
		z, err := archive.OpenZip(p)
		if err != nil {
			return rep, err
		}
		for _, entry := range z.Entries() {
			b, err := z.Read(entry)
			if err != nil {
				_ = z.Close()
				return rep, fmt.Errorf("export %s/%s: %w", e, entry, err)
			}
			rel := filepath.Join(MapsDir, string(e), filepath.FromSlash(entry))
			if err := writeFresh(dstDir, rel, b, marker, overwrite, &rep); err != nil {
				_ = z.Close()
				return rep, err
			}
		}
		_ = z.Close()
	}
	l.Info("export_done", "dst", dstDir, "written", len(rep.Written), "skipped", len(rep.Skipped), "overwrite", overwrite)
	return rep, nil
}

func writeFresh(root, rel string, b []byte, marker time.Time, overwrite bool, rep *ExportReport) error {
	p := filepath.Join(root, rel)
	if info, err := os.Stat(p); err == nil && !overwrite && !info.ModTime().Before(marker) {
		rep.Skipped = append(rep.Skipped, filepath.ToSlash(rel))
		metrics.ExportFilesTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return err
	}
	if err := os.Chtimes(p, marker, marker); err != nil {
		return err
	}
	rep.Written = append(rep.Written, filepath.ToSlash(rel))
	metrics.ExportFilesTotal.WithLabelValues("written").Inc()
	return nil
}
