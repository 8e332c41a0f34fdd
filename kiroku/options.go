package kiroku

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/kirokuforms/internal/metrics"
	"github.com/BaSui01/kirokuforms/internal/retry"
)

// Option 配置 Client
type Option func(*options)

type options struct {
	logger     *zap.Logger
	httpClient *http.Client
	metrics    *metrics.Collector
	limiter    *rate.Limiter
	jitter     func(time.Time) time.Duration
	now        func() time.Time
	sleep      retry.SleepFunc
	newTaskID  func() string
	userAgent  string
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient 替换底层 HTTP 客户端（默认使用 tlsutil.SecureHTTPClient）
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithMetrics 启用 Prometheus 指标
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithRateLimiter 覆盖由配置构造的限流器
func WithRateLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithJitter 覆盖重试抖动（默认取当前秒内小数部分）
func WithJitter(j func(time.Time) time.Duration) Option {
	return func(o *options) { o.jitter = j }
}

// WithClock 注入时钟，影响重试抖动与等待超时的计时
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSleep 注入等待函数，重试退避与结果轮询共用
func WithSleep(sleep retry.SleepFunc) Option {
	return func(o *options) { o.sleep = sleep }
}

// WithTaskIDGenerator 调用方未指定 task_id 时用 gen 生成
func WithTaskIDGenerator(gen func() string) Option {
	return func(o *options) { o.newTaskID = gen }
}

// WithUserAgent 设置 User-Agent
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}
