// Package retry 提供传输层使用的指数退避重试器。
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy 定义重试策略配置
type RetryPolicy struct {
	MaxRetries int           // 最大重试次数（0 表示不重试），总尝试次数为 MaxRetries+1
	BaseDelay  time.Duration // 第 n 次重试前等待 BaseDelay * 2^n
	MaxDelay   time.Duration // 退避上限（0 表示不限制）
	// Jitter 根据当前时间计算抖动，默认取当前时刻的秒内小数部分
	Jitter func(now time.Time) time.Duration
	// Retryable 判断错误是否可重试（为 nil 则重试所有错误）
	Retryable func(err error) bool
	// OnRetry 重试回调
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy 返回默认的重试策略：最多 3 次重试，等待 2s/4s/8s 加亚秒抖动
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Jitter:     FractionalSecond,
	}
}

// FractionalSecond 返回 now 在当前秒内已经过的时长，范围 [0, 1s)
func FractionalSecond(now time.Time) time.Duration {
	return time.Duration(now.Nanosecond())
}

// NoJitter 关闭抖动
func NoJitter(time.Time) time.Duration { return 0 }

// ExhaustedError 重试次数耗尽时返回，包装最后一次失败
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// SleepFunc 阻塞 d，context 取消时提前返回错误
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option 配置 Retryer
type Option func(*Retryer)

// WithClock 注入时钟（用于抖动计算）
func WithClock(now func() time.Time) Option {
	return func(r *Retryer) { r.now = now }
}

// WithSleep 注入等待函数，测试中用于消除真实等待
func WithSleep(sleep SleepFunc) Option {
	return func(r *Retryer) { r.sleep = sleep }
}

// Retryer 基于指数退避的重试器
type Retryer struct {
	policy RetryPolicy
	logger *zap.Logger
	now    func() time.Time
	sleep  SleepFunc
}

// NewRetryer 创建指数退避重试器
func NewRetryer(policy *RetryPolicy, logger *zap.Logger, opts ...Option) *Retryer {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := *policy
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.Jitter == nil {
		p.Jitter = FractionalSecond
	}

	r := &Retryer{
		policy: p,
		logger: logger,
		now:    time.Now,
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy 返回生效的策略副本
func (r *Retryer) Policy() RetryPolicy { return r.policy }

// Do 执行 fn，失败时按策略重试。attempt 从 0 开始。
func (r *Retryer) Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.Delay(attempt)

			r.logger.Warn("request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			if err := r.sleep(ctx, delay); err != nil {
				return fmt.Errorf("retry canceled: %w", err)
			}
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			if attempt > 0 {
				r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry canceled: %w: %v", ctx.Err(), lastErr)
		}
		if !r.isRetryable(lastErr) {
			return lastErr
		}
	}

	r.logger.Error("retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return &ExhaustedError{Attempts: r.policy.MaxRetries + 1, Err: lastErr}
}

// Delay 计算第 attempt 次重试前的等待：BaseDelay * 2^attempt + 抖动
func (r *Retryer) Delay(attempt int) time.Duration {
	delay := float64(r.policy.BaseDelay) * math.Pow(2, float64(attempt))
	if r.policy.MaxDelay > 0 && delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}
	return time.Duration(delay) + r.policy.Jitter(r.now())
}

func (r *Retryer) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if r.policy.Retryable == nil {
		return true
	}
	return r.policy.Retryable(err)
}

// DoWithResult 是 Do 的泛型版本
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(attempt int) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(attempt int) error {
		v, err := fn(attempt)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Sleep 阻塞 d，监听 context 取消
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
