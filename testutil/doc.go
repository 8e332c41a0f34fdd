// Copyright (c) KirokuForms Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 KirokuForms 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，
避免重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，自动注册 Cleanup 防止泄漏
  - 断言工具: AssertErrorCode 按错误码断言 *types.Error
  - 异步等待: WaitFor / WaitForChannel

# 子包

  - testutil/mocks: MockService，基于 httptest 的 KirokuForms 服务替身，
    支持自动完成、故障注入与调用记录
  - testutil/fixtures: 预置字段集、审核数据与 webhook 负载

# 使用示例

	svc := mocks.NewMockService(t).WithAutoComplete(2, map[string]any{"ok": "yes"})
	ctx := testutil.TestContext(t)
	_, err := client.GetTaskResult(ctx, id, kiroku.NoWait())
	testutil.AssertErrorCode(t, err, types.ErrTimeout)
*/
package testutil
