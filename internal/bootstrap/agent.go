package bootstrap

import (
	"context"
	"time"

	"github.com/yuqie6/StudyMirror/internal/eventbus"
	"github.com/yuqie6/StudyMirror/internal/service"
	"github.com/yuqie6/StudyMirror/internal/taxonomy"
)

// AgentRuntime 包含 Agent 二进制需要启动的后台任务
type AgentRuntime struct {
	*Core

	Dispatcher *service.Dispatcher
	Watcher    *taxonomy.Watcher
}

// NewAgentRuntime 构建 Agent 运行时并启动后台任务
func NewAgentRuntime(ctx context.Context, cfgPath string) (*AgentRuntime, error) {
	core, err := NewCore(cfgPath)
	if err != nil {
		return nil, err
	}
	return StartAgent(ctx, core)
}

// StartAgent 在已组装的 Core 上启动分发器与分类表热更新
func StartAgent(ctx context.Context, core *Core) (*AgentRuntime, error) {
	rt := &AgentRuntime{Core: core}

	if core.DB != nil && core.DB.SafeMode {
		// 安全模式：只提供只读接口与状态诊断，不启动任何写库链路。
		// 具体原因由 /api/v1/status 展示。
		return rt, nil
	}

	cfg := core.Cfg
	rt.Dispatcher = service.NewDispatcher(core.Services.Pipeline, &service.DispatcherConfig{
		Workers:    cfg.Dispatcher.Workers,
		QueueSize:  cfg.Dispatcher.QueueSize,
		JobTimeout: time.Duration(cfg.Dispatcher.JobTimeout) * time.Second,
	})
	if err := rt.Dispatcher.Start(ctx); err != nil {
		return nil, err
	}

	if cfg.Taxonomy.Watch && cfg.Taxonomy.Path != "" {
		w, err := taxonomy.NewWatcher(core.Taxonomy, cfg.Taxonomy.Path, func(t *taxonomy.Taxonomy) {
			if _, err := core.SyncBadgeDefinitions(context.Background()); err != nil {
				return
			}
			core.Hub.Publish(eventbus.Event{
				Type: eventbus.TypeTaxonomyReloaded,
				Data: map[string]any{"version": t.Version()},
			})
		})
		if err != nil {
			_ = rt.Dispatcher.Stop()
			return nil, err
		}
		w.Start(ctx)
		rt.Watcher = w
	}

	return rt, nil
}

// Close 关闭 Agent 运行时资源：先排空分发队列，再关闭数据库
func (rt *AgentRuntime) Close() error {
	if rt == nil {
		return nil
	}
	if rt.Watcher != nil {
		_ = rt.Watcher.Close()
	}
	if rt.Dispatcher != nil {
		_ = rt.Dispatcher.Stop()
	}
	return rt.Core.Close()
}
