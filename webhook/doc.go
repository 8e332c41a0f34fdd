// Package webhook 接收 KirokuForms 的任务完成回调。
//
// Receiver 是一个 http.Handler：校验 X-Webhook-Signature（HMAC-SHA256），
// 解析 hitl.task.completed 事件，并通知 Subscribe 返回的通道与注册的回调。
// 通道可直接作为 kiroku.WithWake 的参数，让阻塞轮询在回调到达时立即返回。
package webhook
