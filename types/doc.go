// Copyright (c) KirokuForms Authors.
// Licensed under the MIT License.

/*
Package types 提供 KirokuForms HITL 客户端的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 kiroku、agent/hitl、webhook
等上层模块提供统一的类型契约，避免循环依赖。

# 核心类型

  - Task / TaskDetail / TaskStatus — 远端任务描述与状态
  - Field / Option / FieldType     — 表单字段描述
  - Priority                       — 任务优先级（low / medium / high）
  - Value / Datum / Data           — 有序的待核验数据（string / number / boolean 标签变体）
  - Verification                   — 中断适配器写回调用方状态的核验记录
  - Error / ErrorCode              — 结构化错误体系（配置、连接、服务、超时等）
  - JSONSchema / SubmissionSchema  — 由字段集合生成的提交数据 JSON Schema

# 错误工具链

IsTimeout / IsConfiguration / IsConnection / IsValueError 基于 errors.As，
可穿透 fmt.Errorf("%w") 包装链判断错误类别。
*/
package types
