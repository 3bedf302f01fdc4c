package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yuqie6/StudyMirror/internal/observability"
)

// Watcher 监控分类表文件，变更后重新加载
type Watcher struct {
	provider    *Provider
	path        string
	watcher     *fsnotify.Watcher
	debounceDur time.Duration
	onReload    func(*Taxonomy)

	mu       sync.Mutex
	timer    *time.Timer
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher 创建分类表监控器；onReload 可为空
func NewWatcher(provider *Provider, path string, onReload func(*Taxonomy)) (*Watcher, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider 不能为空")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("获取绝对路径失败: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}
	// 监控所在目录：编辑器常用“写临时文件再 rename”的方式保存
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("添加监控目录失败: %w", err)
	}

	return &Watcher{
		provider:    provider,
		path:        absPath,
		watcher:     fw,
		debounceDur: 300 * time.Millisecond,
		onReload:    onReload,
		done:        make(chan struct{}),
	}, nil
}

// Start 启动监控循环，ctx 取消后退出
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
	slog.Info("技能分类表热加载已启动", "path", w.path)
}

// Close 停止监控
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("技能分类表监控错误", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDur, func() {
		if err := w.Reload(); err != nil {
			slog.Warn("重新加载技能分类表失败，继续使用旧版本", "path", w.path, "error", err)
		}
	})
}

// Reload 立即重新加载文件；解析失败时保留旧版本
func (w *Watcher) Reload() error {
	t, err := Load(w.path)
	observability.RecordTaxonomyReload(err)
	if err != nil {
		return err
	}
	old := w.provider.Swap(t)
	slog.Info("技能分类表已重新加载", "path", w.path, "old_version", old.Version(), "version", t.Version())
	if w.onReload != nil {
		w.onReload(t)
	}
	return nil
}
