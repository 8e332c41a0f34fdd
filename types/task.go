package types

import "fmt"

// TaskStatus 远端任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusExpired   TaskStatus = "expired"
	TaskStatusCanceled  TaskStatus = "canceled"
)

// IsTerminal 任务进入 completed / expired / canceled 后不再变化
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusExpired, TaskStatusCanceled:
		return true
	}
	return false
}

// Priority 任务优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// FieldType 表单字段类型
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeNumber   FieldType = "number"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeEmail    FieldType = "email"
	FieldTypeDate     FieldType = "date"
)

// HasOptions 选择类字段需要 options
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldTypeRadio, FieldTypeSelect, FieldTypeCheckbox:
		return true
	}
	return false
}

// Option 选择类字段的一个选项
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Field 单个表单输入的结构描述。Name 是提交结果映射中的键。
type Field struct {
	Type         FieldType `json:"type"`
	Label        string    `json:"label,omitempty"`
	Name         string    `json:"name"`
	Required     bool      `json:"required"`
	DefaultValue any       `json:"defaultValue,omitempty"`
	Options      []Option  `json:"options,omitempty"`
}

// ValidateFields 校验字段集合：名称非空且唯一。
func ValidateFields(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return NewConfigurationError(fmt.Sprintf("field %d has an empty name", i))
		}
		if _, dup := seen[f.Name]; dup {
			return NewConfigurationError(fmt.Sprintf("duplicate field name %q", f.Name))
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Task 创建任务后服务端返回的任务描述
type Task struct {
	TaskID     string `json:"taskId"`
	HITLTaskID string `json:"hitlTaskId,omitempty"`
	FormID     string `json:"formId,omitempty"`
	FormURL    string `json:"formUrl"`
}

// Submission 人工提交内容
type Submission struct {
	ID   string         `json:"id,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// TaskDetail 任务状态查询 / 取消接口返回的任务详情
type TaskDetail struct {
	TaskID      string      `json:"taskId"`
	HITLTaskID  string      `json:"hitlTaskId,omitempty"`
	Status      TaskStatus  `json:"status"`
	Title       string      `json:"title,omitempty"`
	FormURL     string      `json:"formUrl,omitempty"`
	CallbackURL string      `json:"callbackUrl,omitempty"`
	Submission  *Submission `json:"submission,omitempty"`
}

// SubmissionData 返回提交数据；未完成或无数据时返回空映射。
func (d *TaskDetail) SubmissionData() map[string]any {
	if d == nil || d.Submission == nil || d.Submission.Data == nil {
		return map[string]any{}
	}
	return d.Submission.Data
}
