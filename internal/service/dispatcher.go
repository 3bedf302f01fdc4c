package service

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yuqie6/StudyMirror/internal/observability"
)

// ActivityLogger 流水线入口（便于替换为 fake）
type ActivityLogger interface {
	LogActivity(ctx context.Context, in ActivityInput) (*ActivityOutcome, error)
}

// Dispatcher 异步事件分发：按用户分片到固定 worker，保证同一用户的事件按提交顺序处理
type Dispatcher struct {
	pipeline ActivityLogger
	queues   []chan ActivityInput
	queueCap int
	timeout  time.Duration

	wg      sync.WaitGroup
	running atomic.Bool
	stopMu  sync.RWMutex // 保护 queues 关闭与 Submit 之间的竞争
	stopped bool

	processed     atomic.Int64
	failed        atomic.Int64
	dropped       atomic.Int64
	lastProcessed atomic.Int64
}

// DispatcherConfig 分发配置
type DispatcherConfig struct {
	Workers    int           // worker 数量
	QueueSize  int           // 每个 worker 的队列容量
	JobTimeout time.Duration // 单个事件处理超时
}

// DefaultDispatcherConfig 默认配置
func DefaultDispatcherConfig() *DispatcherConfig {
	return &DispatcherConfig{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: 10 * time.Second,
	}
}

// NewDispatcher 创建分发器
func NewDispatcher(pipeline ActivityLogger, cfg *DispatcherConfig) *Dispatcher {
	if cfg == nil {
		cfg = DefaultDispatcherConfig()
	}
	def := DefaultDispatcherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}

	queues := make([]chan ActivityInput, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan ActivityInput, cfg.QueueSize)
	}
	return &Dispatcher{
		pipeline: pipeline,
		queues:   queues,
		queueCap: cfg.QueueSize,
		timeout:  cfg.JobTimeout,
	}
}

// Start 启动 worker
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return nil
	}
	slog.Info("事件分发器启动", "workers", len(d.queues), "queue_cap", d.queueCap)

	for i, q := range d.queues {
		d.wg.Add(1)
		go d.worker(ctx, i, q)
	}
	return nil
}

// Stop 停止接收新事件，等待队列中的事件处理完毕
func (d *Dispatcher) Stop() error {
	d.stopMu.Lock()
	if d.stopped {
		d.stopMu.Unlock()
		return nil
	}
	d.stopped = true
	for _, q := range d.queues {
		close(q)
	}
	d.stopMu.Unlock()

	if d.running.Load() {
		slog.Info("正在停止事件分发器...")
		d.wg.Wait()
		d.running.Store(false)
		slog.Info("事件分发器已停止", "processed", d.processed.Load(), "dropped", d.dropped.Load())
	}
	return nil
}

// Submit 非阻塞提交；队列已满或已停止时丢弃并返回 false
func (d *Dispatcher) Submit(in ActivityInput) bool {
	d.stopMu.RLock()
	defer d.stopMu.RUnlock()
	if d.stopped {
		d.drop(in, "stopped")
		return false
	}

	q := d.queues[d.shard(in.UserID)]
	select {
	case q <- in:
		observability.SetDispatcherQueueDepth(d.depth())
		return true
	default:
		d.drop(in, "queue_full")
		return false
	}
}

func (d *Dispatcher) drop(in ActivityInput, reason string) {
	d.dropped.Add(1)
	observability.IncDispatcherDropped()
	slog.Warn("学习事件被丢弃", "user", in.UserID, "activity_type", in.ActivityType, "reason", reason)
}

func (d *Dispatcher) shard(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) worker(ctx context.Context, idx int, q <-chan ActivityInput) {
	defer d.wg.Done()

	for in := range q {
		// 处理使用独立 ctx，外部 cancel 后仍把已接收的事件处理完
		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		out, err := d.pipeline.LogActivity(jobCtx, in)
		cancel()

		d.processed.Add(1)
		d.lastProcessed.Store(time.Now().UnixMilli())
		observability.SetDispatcherQueueDepth(d.depth())

		if err != nil {
			d.failed.Add(1)
			slog.Error("处理学习事件失败", "worker", idx, "user", in.UserID, "error", err)
			continue
		}
		if branchErr := out.Err(); branchErr != nil {
			d.failed.Add(1)
		}
	}
}

func (d *Dispatcher) depth() int {
	n := 0
	for _, q := range d.queues {
		n += len(q)
	}
	return n
}

// Stats 返回分发器统计信息
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Workers:         len(d.queues),
		QueueLen:        d.depth(),
		QueueCap:        d.queueCap * len(d.queues),
		Processed:       d.processed.Load(),
		Failed:          d.failed.Load(),
		Dropped:         d.dropped.Load(),
		LastProcessedAt: d.lastProcessed.Load(),
		Running:         d.running.Load(),
	}
}

// DispatcherStats 分发器统计
type DispatcherStats struct {
	Workers         int   `json:"workers"`
	QueueLen        int   `json:"queue_len"`
	QueueCap        int   `json:"queue_cap"`
	Processed       int64 `json:"processed"`
	Failed          int64 `json:"failed"`
	Dropped         int64 `json:"dropped"`
	LastProcessedAt int64 `json:"last_processed_at"`
	Running         bool  `json:"running"`
}
