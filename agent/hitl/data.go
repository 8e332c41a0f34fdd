package hitl

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/kirokuforms/types"
)

// 无类型中断参数的键
const (
	KeyTitle         = "title"
	KeyDescription   = "description"
	KeyFields        = "fields"
	KeyData          = "data"
	KeyWaitForResult = "wait_for_result"
)

// InterruptDataFromMap 从无类型映射读取中断参数。
// data 为映射时按键排序以保证字段顺序稳定；类型不符返回 CONFIGURATION 错误。
func InterruptDataFromMap(raw map[string]any) (InterruptData, error) {
	var d InterruptData

	if v, ok := raw[KeyTitle]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return d, invalidKey(KeyTitle, v)
		}
		d.Title = s
	}
	if v, ok := raw[KeyDescription]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return d, invalidKey(KeyDescription, v)
		}
		d.Description = s
	}
	if v, ok := raw[KeyFields]; ok {
		fields, err := decodeFields(v)
		if err != nil {
			return d, types.NewConfigurationError("invalid fields: " + err.Error()).WithCause(err)
		}
		d.Fields = fields
	}
	if v, ok := raw[KeyData]; ok {
		switch t := v.(type) {
		case types.Data:
			d.Data = t
		case map[string]any:
			d.Data = types.DataFromMap(t)
		case nil:
			d.Data = types.Data{}
		default:
			return d, invalidKey(KeyData, v)
		}
	}
	if v, ok := raw[KeyWaitForResult]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return d, invalidKey(KeyWaitForResult, v)
		}
		d.WaitForResult = &b
	}
	return d, nil
}

// decodeFields 接受 []types.Field 或 JSON 形态的字段描述
func decodeFields(v any) ([]types.Field, error) {
	switch t := v.(type) {
	case []types.Field:
		if t == nil {
			return []types.Field{}, nil
		}
		return t, nil
	case nil:
		return []types.Field{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := []types.Field{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func invalidKey(key string, v any) error {
	return types.NewConfigurationError(fmt.Sprintf("interrupt key %q has unexpected type %T", key, v))
}

// VerificationFrom 从状态中读回核验记录
func VerificationFrom(state map[string]any) (types.Verification, bool) {
	switch v := state[types.VerificationKey].(type) {
	case types.Verification:
		return v, true
	case *types.Verification:
		if v == nil {
			return types.Verification{}, false
		}
		return *v, true
	case map[string]any:
		var rec types.Verification
		rec.Completed, _ = v["completed"].(bool)
		rec.TaskID, _ = v["task_id"].(string)
		rec.FormURL, _ = v["form_url"].(string)
		rec.Result, _ = v["result"].(map[string]any)
		return rec, true
	default:
		return types.Verification{}, false
	}
}
