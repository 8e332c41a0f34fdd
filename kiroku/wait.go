package kiroku

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/kirokuforms/types"
)

// WaitOption 配置 GetTaskResult 的等待行为
type WaitOption func(*waitOptions)

type waitOptions struct {
	wait     bool
	timeout  time.Duration
	interval time.Duration
	wake     <-chan struct{}
}

// NoWait 只查询一次，未完成即返回 TIMEOUT
func NoWait() WaitOption {
	return func(o *waitOptions) { o.wait = false }
}

// WithTimeout 设置阻塞等待上限（默认取配置的 wait_timeout）
func WithTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) { o.timeout = d }
}

// WithPollInterval 设置轮询间隔（默认取配置的 poll_interval）
func WithPollInterval(d time.Duration) WaitOption {
	return func(o *waitOptions) { o.interval = d }
}

// WithWake 收到信号时立即进入下一次轮询，通常来自 webhook.Receiver.Subscribe
func WithWake(ch <-chan struct{}) WaitOption {
	return func(o *waitOptions) { o.wake = ch }
}

func (c *Client) waitOptions(opts []WaitOption) waitOptions {
	o := waitOptions{
		wait:     true,
		timeout:  c.cfg.WaitTimeout,
		interval: c.cfg.PollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GetTaskResult 获取任务提交结果。
// 已完成返回 submission.data；未完成且不等待、超过等待上限、或任务已过期/取消时返回 TIMEOUT 错误，
// 错误中带有最后观察到的状态。
func (c *Client) GetTaskResult(ctx context.Context, taskID string, opts ...WaitOption) (map[string]any, error) {
	o := c.waitOptions(opts)
	start := c.now()
	wake := o.wake

	for {
		detail, err := c.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		status := detail.Status
		c.metrics.RecordPoll(string(status))

		if status == types.TaskStatusCompleted {
			c.logger.Debug("task completed", zap.String("task_id", taskID))
			return detail.SubmissionData(), nil
		}
		if status.IsTerminal() {
			return nil, types.NewError(types.ErrTimeout,
				fmt.Sprintf("Task %s %s before completion", taskID, status)).
				WithTask(taskID, status)
		}
		if !o.wait || c.now().Sub(start) > o.timeout {
			return nil, types.NewTimeoutError(taskID, status)
		}

		c.logger.Debug("waiting for task completion",
			zap.String("task_id", taskID),
			zap.String("status", string(status)),
			zap.Duration("poll_interval", o.interval),
		)

		if wake == nil {
			if err := c.sleep(ctx, o.interval); err != nil {
				return nil, canceled(taskID, status, err)
			}
			continue
		}
		timer := time.NewTimer(o.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, canceled(taskID, status, ctx.Err())
		case <-timer.C:
		case _, ok := <-wake:
			timer.Stop()
			if !ok {
				wake = nil
			}
		}
	}
}

func canceled(taskID string, status types.TaskStatus, err error) error {
	return types.NewError(types.ErrCanceled, "waiting for task "+taskID+" canceled").
		WithTask(taskID, status).
		WithCause(err)
}

// Result GetTaskResultAsync 的结果
type Result struct {
	TaskID string
	Data   map[string]any
	Err    error
}

// GetTaskResultAsync 在后台 goroutine 中等待结果，通道只发送一次后关闭
func (c *Client) GetTaskResultAsync(ctx context.Context, taskID string, opts ...WaitOption) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		data, err := c.GetTaskResult(ctx, taskID, opts...)
		ch <- Result{TaskID: taskID, Data: data, Err: err}
	}()
	return ch
}

// WaitAll 并发等待多个任务，任一失败即取消其余等待并返回该错误
func (c *Client) WaitAll(ctx context.Context, taskIDs []string, opts ...WaitOption) (map[string]map[string]any, error) {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	results := make(map[string]map[string]any, len(taskIDs))

	for _, id := range taskIDs {
		g.Go(func() error {
			data, err := c.GetTaskResult(gctx, id, opts...)
			if err != nil {
				return err
			}
			mu.Lock()
			results[id] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
