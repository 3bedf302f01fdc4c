package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoggerOptions 日志选项
type LoggerOptions struct {
	Level     string
	Path      string // 为空只输出到 stdout
	Component string // 写入每条日志的 component 属性
}

// ParseLevel 解析日志级别，未知值回退为 info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// SetupLogger 设置全局 slog；配置了文件时同时写文件与 stdout，返回的 Closer 负责关闭文件
func SetupLogger(opts LoggerOptions) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	var fileErr error

	if path := strings.TrimSpace(opts.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fileErr = fmt.Errorf("创建日志目录失败: %w", err)
		} else if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			fileErr = fmt.Errorf("打开日志文件失败: %w", err)
		} else {
			out = io.MultiWriter(os.Stdout, f)
			closer = f
		}
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	})
	logger := slog.New(handler)
	if opts.Component != "" {
		logger = logger.With("component", opts.Component)
	}
	slog.SetDefault(logger)

	if fileErr != nil {
		slog.Warn("日志文件不可用，仅输出到 stdout", "error", fileErr)
	}
	return closer, fileErr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
