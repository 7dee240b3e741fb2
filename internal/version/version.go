// 包 version：构建标识（由 -ldflags 注入），同时作为数据集导出的新鲜度标记
package version

import "time"

var (
	// Commit 为构建提交号
	Commit = "dev"
	// Dataset 为捆绑数据集的构建时间（RFC3339），与数据一同发布
	Dataset = "2019-06-01T00:00:00Z"
)

// 文档注释：数据集新鲜度标记
// 背景：导出时以固定时间戳标记写出的文件，重复导出据此判断目标是否更新，避免依赖墙钟导致不幂等。
// 约束：Dataset 解析失败时回退到 Unix 零点，确保结果确定。
func DatasetTime() time.Time {
	t, err := time.Parse(time.RFC3339, Dataset)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}
