// Copyright (c) KirokuForms Authors.
// Licensed under the MIT License.

/*
Package main 提供 kiroku 命令行工具入口。

# 概述

cmd/kiroku 封装 KirokuForms 客户端的任务操作与 webhook 接收服务。
程序支持 YAML 配置文件加载、KIROKU_ 前缀环境变量覆盖、结构化日志（zap）、
OpenTelemetry 追踪以及 Prometheus 指标采集。

# 子命令

  - create   — 按字段定义或模板创建审核任务，可选阻塞等待结果
  - verify   — 根据 JSON 数据自动生成核对表单
  - result   — 查询或等待任务结果
  - list     — 分页列出任务
  - cancel   — 取消待处理任务
  - watch    — 以中断方式创建核验任务，按 watcher.interval 巡检直至结束
  - webhook  — 启动回调接收服务，同端口暴露 /metrics
  - version  — 显示版本信息

构建时通过 ldflags 注入 Version、BuildTime、GitCommit。
*/
package main
