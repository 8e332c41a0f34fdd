// =============================================================================
// 📦 测试数据工厂 - 审核任务测试数据
// =============================================================================
// 提供预定义的字段集、审核数据和 webhook 负载，用于测试
// =============================================================================
package fixtures

import (
	"encoding/json"

	"github.com/BaSui01/kirokuforms/types"
)

// =============================================================================
// 📝 字段集工厂
// =============================================================================

// FeedbackFields 返回反馈表单字段：必填文本 + 评分单选
func FeedbackFields() []types.Field {
	return []types.Field{
		{
			Type:     types.FieldTypeText,
			Label:    "Feedback",
			Name:     "feedback_field",
			Required: true,
		},
		{
			Type:     types.FieldTypeRadio,
			Label:    "Rating",
			Name:     "rating_field",
			Required: true,
			Options: []types.Option{
				{Label: "Good", Value: "good"},
				{Label: "Bad", Value: "bad"},
			},
		},
	}
}

// FeedbackSubmission 返回与 FeedbackFields 匹配的提交数据
func FeedbackSubmission() map[string]any {
	return map[string]any{
		"feedback_field": "looks right",
		"rating_field":   "good",
	}
}

// =============================================================================
// 🔍 审核数据工厂
// =============================================================================

// CustomerData 返回待核对的客户信息
func CustomerData() types.Data {
	return types.Data{
		{Key: "customer_name", Value: types.String("Ada Lovelace")},
		{Key: "order_total", Value: types.Number(42.5)},
		{Key: "is_priority", Value: types.Bool(true)},
	}
}

// VerificationSubmission 返回核对表单的提交数据
func VerificationSubmission(correct bool) map[string]any {
	answer := "no"
	if correct {
		answer = "yes"
	}
	return map[string]any{
		"customer_name": "Ada Lovelace",
		"order_total":   "42.5",
		"is_priority":   "true",
		"is_correct":    answer,
		"comments":      "",
	}
}

// =============================================================================
// 📨 Webhook 负载
// =============================================================================

// CompletedEvent 返回 hitl.task.completed 事件的 JSON 负载
func CompletedEvent(taskID string, formData map[string]any) []byte {
	body, err := json.Marshal(map[string]any{
		"eventType": "hitl.task.completed",
		"taskId":    taskID,
		"data": map[string]any{
			"status":   types.TaskStatusCompleted,
			"formData": formData,
		},
	})
	if err != nil {
		panic(err)
	}
	return body
}
