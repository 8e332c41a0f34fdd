// Package config 提供 KirokuForms 客户端的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的优先级加载，
// 覆盖 API 客户端、Webhook 接收端、待处理任务巡检、日志、遥测与指标。
package config
