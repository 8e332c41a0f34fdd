// Copyright (c) KirokuForms Authors.
// Licensed under the MIT License.

/*
Package kiroku 是 KirokuForms 人工审核（HITL）服务的 Go 客户端。

# 分层

  - Transport：带 Bearer 认证的 JSON 请求，传输失败按 2^n 秒加亚秒抖动退避重试，
    统一拆解 {"success","data","error"} 响应信封。
  - Client：任务生命周期。CreateTask / CreateVerificationTask 组装创建请求，
    GetTaskResult 以固定间隔轮询直到完成或超时，ListTasks / CancelTask 透传。

# 阻塞模型

GetTaskResult 在调用方 goroutine 上阻塞轮询；需要非阻塞时使用 NoWait()
或 GetTaskResultAsync，多个任务可用 WaitAll 并发等待。所有等待都响应 context 取消。

# 使用示例

	client, err := kiroku.New(config.ClientConfig{APIKey: key})
	task, err := client.CreateTask(ctx, kiroku.CreateTaskRequest{
	    Title:  "Review",
	    Fields: []types.Field{{Type: types.FieldTypeText, Name: "q", Required: true}},
	})
	data, err := client.GetTaskResult(ctx, task.TaskID, kiroku.WithTimeout(10*time.Minute))
*/
package kiroku
