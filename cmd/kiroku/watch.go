package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/kirokuforms/agent/hitl"
)

// =============================================================================
// ⏱️ watch 命令
// =============================================================================

// runWatch 以中断方式创建核验任务（不阻塞等待），再由巡检器按
// watcher.interval 轮询 pending 记录，任务离开 pending 后输出核验记录。
func runWatch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	configPath := fs.String("config", "", "Path to config file")
	title := fs.String("title", "", "Task title")
	description := fs.String("description", "", "Task description")
	dataArg := fs.String("data", "", "Data to verify as JSON object or @file (required)")
	interval := fs.Duration("interval", 0, "Sweep interval (overrides watcher.interval)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataArg == "" {
		return fmt.Errorf("--data is required")
	}

	raw, err := readArg(*dataArg)
	if err != nil {
		return err
	}
	data, err := decodeOrderedData(raw)
	if err != nil {
		return fmt.Errorf("invalid --data: %w", err)
	}

	if err := a.setup(*configPath); err != nil {
		return err
	}
	if *interval > 0 {
		a.cfg.Watcher.Interval = *interval
	}
	client, err := a.client()
	if err != nil {
		return err
	}

	handler := hitl.NewHandler(client,
		hitl.WithLogger(a.logger),
		hitl.WithMetrics(a.collector),
	)
	noWait := false
	rec, err := handler.Interrupt(ctx, hitl.InterruptData{
		Title:         *title,
		Description:   *description,
		Data:          data,
		WaitForResult: &noWait,
	})
	if err != nil {
		return err
	}

	resumed := make(chan hitl.Resumed, 1)
	watcher, err := hitl.NewWatcher(handler, a.cfg.Watcher.Interval, func(_ context.Context, r hitl.Resumed) {
		select {
		case resumed <- r:
		default:
		}
	}, a.logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			a.logger.Warn("watcher stop failed", zap.Error(err))
		}
	}()

	a.logger.Info("waiting for human review",
		zap.String("task_id", rec.TaskID),
		zap.String("form_url", rec.FormURL),
		zap.Duration("interval", a.cfg.Watcher.Interval),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-resumed:
		if r.Err != nil {
			return r.Err
		}
		return writeJSON(a.stdout, r.Record)
	}
}
