package types

// VerificationKey 是中断适配器写入调用方状态的键
const VerificationKey = "human_verification"

// Verification 人工核验记录。
// 创建时为 pending 形态（Completed=false, Result=nil），任务完成后写入一次结果。
type Verification struct {
	Completed bool           `json:"completed"`
	TaskID    string         `json:"task_id"`
	FormURL   string         `json:"form_url"`
	Result    map[string]any `json:"result"`
}

// Pending reports whether the record still waits for a human.
func (v Verification) Pending() bool { return !v.Completed }

// Map 以 map 形式呈现记录，供无类型的状态映射使用
func (v Verification) Map() map[string]any {
	var result any
	if v.Result != nil {
		result = v.Result
	}
	return map[string]any{
		"completed": v.Completed,
		"task_id":   v.TaskID,
		"form_url":  v.FormURL,
		"result":    result,
	}
}
