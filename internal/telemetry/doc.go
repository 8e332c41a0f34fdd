// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 KirokuForms 客户端提供集中式的 TracerProvider 和 MeterProvider 配置，
// 并提供传输层使用的 Tracer。遥测禁用时使用全局 noop 实现。
package telemetry
