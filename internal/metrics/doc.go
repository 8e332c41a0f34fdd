// Package metrics 提供 KirokuForms 客户端的 Prometheus 指标收集：
// API 请求与重试、任务创建与轮询、中断处理结果、Webhook 事件。
package metrics
