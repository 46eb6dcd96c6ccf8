// 包 logger：统一初始化与获取日志器；通过环境变量控制日志级别与输出格式
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// ParseLevel 解析 LOG_LEVEL 文本，未知值回落到 info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New 按级别与格式构造日志器；format 为 json 时输出 JSON，否则文本
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup：按 LOG_LEVEL/LOG_FORMAT 初始化默认日志器
// 约束：输出目标固定为标准错误。
func Setup() *slog.Logger {
	l := New(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")), os.Getenv("LOG_FORMAT"))
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return l
}

// L：获取默认日志器；未初始化则回退到 Setup
func L() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		return Setup()
	}
	return l
}
