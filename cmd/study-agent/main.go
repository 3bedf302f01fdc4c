package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuqie6/StudyMirror/internal/bootstrap"
	"github.com/yuqie6/StudyMirror/internal/httpapi"
	"github.com/yuqie6/StudyMirror/internal/pkg/config"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "配置文件路径")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfgPath == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			cfgPath = p
			if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
				_ = config.WriteFile(cfgPath, config.Default())
			}
		}
	}

	rt, err := bootstrap.NewAgentRuntime(ctx, cfgPath)
	if err != nil {
		slog.Error("启动 Agent 失败", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	slog.Info("StudyMirror Agent 启动中...", "name", rt.Cfg.App.Name, "version", rt.Cfg.App.Version)

	server, err := httpapi.Start(ctx, rt, httpapi.Options{ListenAddr: rt.Cfg.Server.ListenAddr})
	if err != nil {
		slog.Error("启动 HTTP API 失败", "error", err)
		os.Exit(1)
	}
	slog.Info("StudyMirror Agent 已启动", "base_url", server.BaseURL())

	<-ctx.Done()
	slog.Info("收到系统退出信号，正在关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = server.Shutdown(shutdownCtx)
	cancel()
	slog.Info("StudyMirror Agent 已退出")
}
