package hitl

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/BaSui01/kirokuforms/types"
)

// ResumeFunc 在 pending 记录离开 pending 集合时调用。
// 任务完成时 err 为 nil；过期或取消时 err 为 TIMEOUT 错误。
type ResumeFunc func(ctx context.Context, record Resumed)

// Resumed 巡检得到的结果
type Resumed struct {
	Record types.Verification
	Err    error
}

// Watcher 定期重新查询 pending 中断
type Watcher struct {
	handler   *Handler
	interval  time.Duration
	onResume  ResumeFunc
	logger    *zap.Logger
	scheduler gocron.Scheduler
}

// NewWatcher 创建巡检器，interval 必须为正
func NewWatcher(handler *Handler, interval time.Duration, onResume ResumeFunc, logger *zap.Logger) (*Watcher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("watcher interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Watcher{
		handler:   handler,
		interval:  interval,
		onResume:  onResume,
		logger:    logger.With(zap.String("component", "hitl_watcher")),
		scheduler: s,
	}, nil
}

// Start 注册巡检任务并启动调度器；ctx 传给每次巡检
func (w *Watcher) Start(ctx context.Context) error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.Sweep(ctx) }),
		gocron.WithName("hitl-pending-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule pending sweep: %w", err)
	}
	w.scheduler.Start()
	w.logger.Info("watcher started", zap.Duration("interval", w.interval))
	return nil
}

// Stop 停止调度器并等待正在执行的巡检结束
func (w *Watcher) Stop() error {
	if err := w.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	w.logger.Info("watcher stopped")
	return nil
}

// Sweep 对每个 pending 记录查询一次，返回本轮离开 pending 集合的数量
func (w *Watcher) Sweep(ctx context.Context) int {
	resolved := 0
	for _, rec := range w.handler.Pending() {
		if ctx.Err() != nil {
			return resolved
		}
		record, done, err := w.handler.Resolve(ctx, rec.TaskID)
		if !done {
			if err != nil {
				w.logger.Warn("pending interrupt poll failed",
					zap.String("task_id", rec.TaskID),
					zap.Error(err),
				)
			}
			continue
		}
		resolved++
		if w.onResume != nil {
			w.onResume(ctx, Resumed{Record: record, Err: err})
		}
	}
	return resolved
}
