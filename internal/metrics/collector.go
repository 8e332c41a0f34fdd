// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。nil *Collector 上的所有记录方法都是空操作。
type Collector struct {
	// 传输层指标
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec

	// 任务生命周期指标
	tasksCreated *prometheus.CounterVec
	taskPolls    *prometheus.CounterVec

	// 中断适配器指标
	interruptsTotal *prometheus.CounterVec

	// Webhook 指标
	webhookEvents *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg；reg 为 nil 时使用默认注册表
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of KirokuForms API request attempts",
		},
		[]string{"method", "endpoint", "status"},
	)

	c.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "KirokuForms API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	c.retriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "Total number of retried API requests",
		},
		[]string{"endpoint"},
	)

	c.tasksCreated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Total number of HITL tasks created",
		},
		[]string{"source"}, // source: fields, template
	)

	c.taskPolls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_polls_total",
			Help:      "Total number of task status polls by observed status",
		},
		[]string{"status"},
	)

	c.interruptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interrupts_total",
			Help:      "Total number of handled interrupts by outcome",
		},
		[]string{"outcome"}, // outcome: completed, pending, abandoned, error
	)

	c.webhookEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Total number of received webhook events",
		},
		[]string{"event", "result"},
	)

	logger.Debug("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🌐 传输层指标记录
// =============================================================================

// RecordRequest 记录一次 API 请求尝试；status 为 0 表示未拿到 HTTP 响应
func (c *Collector) RecordRequest(method, endpoint string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	ep := EndpointLabel(endpoint)
	c.requestsTotal.WithLabelValues(method, ep, statusCode(status)).Inc()
	c.requestDuration.WithLabelValues(method, ep).Observe(duration.Seconds())
}

// RecordRetry 记录一次重试
func (c *Collector) RecordRetry(endpoint string) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(EndpointLabel(endpoint)).Inc()
}

// =============================================================================
// 📝 任务与中断指标记录
// =============================================================================

// RecordTaskCreated 记录任务创建
func (c *Collector) RecordTaskCreated(source string) {
	if c == nil {
		return
	}
	c.tasksCreated.WithLabelValues(source).Inc()
}

// RecordPoll 记录一次状态轮询
func (c *Collector) RecordPoll(status string) {
	if c == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	c.taskPolls.WithLabelValues(status).Inc()
}

// RecordInterrupt 记录中断处理结果
func (c *Collector) RecordInterrupt(outcome string) {
	if c == nil {
		return
	}
	c.interruptsTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhookEvent 记录 webhook 事件
func (c *Collector) RecordWebhookEvent(event, result string) {
	if c == nil {
		return
	}
	if event == "" {
		event = "unknown"
	}
	c.webhookEvents.WithLabelValues(event, result).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// EndpointLabel 去掉查询串并把任务 ID 折叠为 :id，控制标签基数
func EndpointLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	endpoint = strings.Trim(endpoint, "/")
	const prefix = "resources/hitl/tasks/"
	if !strings.HasPrefix(endpoint, prefix) {
		return endpoint
	}
	rest := endpoint[len(prefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + ":id" + rest[i:]
	}
	return prefix + ":id"
}

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	case code == 0:
		return "error"
	default:
		return "unknown"
	}
}
