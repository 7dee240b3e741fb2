// 包 logger：统一初始化与获取日志器，避免各组件重复配置；通过环境变量控制日志级别与输出格式
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// 默认日志器：进程级复用；原子指针保证并发读取时无需加锁
var defaultLogger atomic.Pointer[slog.Logger]

// Setup：初始化默认日志器
// 背景：集中化日志配置，便于按环境统一调整级别与格式
// 约束：输出目标固定为标准错误；LOG_LEVEL=debug|info|warn|error，LOG_FORMAT=json|text
func Setup() *slog.Logger {
	return SetupWriter(os.Stderr)
}

// SetupWriter：同 Setup，但写入指定目标（测试中用于捕获输出）
func SetupWriter(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromEnv()}
	var h slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h)
	defaultLogger.Store(l)
	return l
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L：获取默认日志器；未初始化时回退到 Setup
func L() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return Setup()
}

// For：带组件名的子日志器，例如 For("mapcache")
func For(component string) *slog.Logger {
	return L().With("component", component)
}
