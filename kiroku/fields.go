package kiroku

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BaSui01/kirokuforms/types"
)

const (
	// FieldIsCorrect 核验任务固定追加的确认字段
	FieldIsCorrect = "is_correct"
	// FieldComments 核验任务固定追加的备注字段
	FieldComments = "comments"
)

// VerificationFields 按数据顺序为每一项合成一个必填字段，再追加确认与备注字段。
// bool → radio(True/False)，number → number，其余 → text；默认值为值的字符串形式。
// 数据键与 is_correct / comments 同名时字段名重复，CreateTask 会以配置错误拒绝。
func VerificationFields(data types.Data) []types.Field {
	fields := make([]types.Field, 0, len(data)+2)
	for _, kv := range data {
		f := types.Field{
			Label:        FieldLabel(kv.Key),
			Name:         kv.Key,
			Required:     true,
			DefaultValue: kv.Value.String(),
		}
		switch kv.Value.Kind() {
		case types.KindBool:
			f.Type = types.FieldTypeRadio
			f.Options = []types.Option{
				{Label: "True", Value: "true"},
				{Label: "False", Value: "false"},
			}
		case types.KindNumber:
			f.Type = types.FieldTypeNumber
		default:
			f.Type = types.FieldTypeText
		}
		fields = append(fields, f)
	}

	return append(fields,
		types.Field{
			Type:     types.FieldTypeRadio,
			Label:    "Is this information correct?",
			Name:     FieldIsCorrect,
			Required: true,
			Options: []types.Option{
				{Label: "Yes", Value: "yes"},
				{Label: "No", Value: "no"},
			},
		},
		types.Field{
			Type:     types.FieldTypeTextarea,
			Label:    "Comments or Corrections",
			Name:     FieldComments,
			Required: false,
		},
	)
}

// FieldLabel 把 snake_case 键转换为标题形式："is_ready" → "Is Ready"
func FieldLabel(key string) string {
	// Caser 有状态，不能跨 goroutine 共享
	return cases.Title(language.Und).String(strings.ReplaceAll(key, "_", " "))
}
