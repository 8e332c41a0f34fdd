// Copyright (c) KirokuForms Authors.
// Licensed under the MIT License.

/*
Package workflow 提供最小化的顺序步骤执行器，用于接入人工审核中断。

# 概述

workflow 包只实现链式编排：步骤按顺序执行，前一步的输出作为后一步的输入。
HumanReviewStep 把链路状态交给 InterruptHandler（*hitl.Handler 即满足该接口），
审核记录写入状态的 human_verification 键。它不是通用图引擎。

# 核心接口与类型

  - Runnable         — 通用执行接口 Execute(ctx, input) (output, error)
  - Workflow         — 工作流接口（Runnable + Name + Description）
  - Step / FuncStep  — 步骤接口与函数步骤
  - ChainWorkflow    — 顺序链式工作流
  - HumanReviewStep  — 人工审核步骤，可在记录未完成时以 ErrReviewPending 停止链路
  - CodeStep / PassthroughStep — 辅助步骤

# 事件流

WithStreamEmitter 在 context 中注入回调，ChainWorkflow 执行时发出
step_start / step_complete / step_error / review_pending 事件。
*/
package workflow
