// Package hitl 把 KirokuForms 人工审核任务适配为工作流中断。
//
// Handler 在工作流节点中创建审核任务，按需阻塞等待结果，并把核验记录写入
// 调用方状态的 human_verification 键。等待超时不会中断工作流：记录保持
// pending，由 Watcher 在后台重新轮询并通过回调恢复。
package hitl
