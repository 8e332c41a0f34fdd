package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ValueKind 待核验数据的标签
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "string"
	}
}

// Value 是 string / number / boolean 的标签变体。
// 字段类型推断按 Kind 分支，不在运行时反射调用方的值。
type Value struct {
	kind ValueKind
	s    string
	n    float64
	b    bool
}

// String 构造字符串值
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number 构造数值
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Bool 构造布尔值
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind 返回标签
func (v Value) Kind() ValueKind { return v.kind }

// String 渲染为表单默认值：true/false、最短十进制表示、原样字符串。
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		return v.s
	}
}

// Interface 返回对应的 Go 值
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	default:
		return v.s
	}
}

// MarshalJSON 按原始类型编码
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// ValueOf 在调用边界把任意值转换为标签变体。
// 整数/浮点/json.Number 为 number，bool 为 boolean，其余按 fmt 渲染为 string。
func ValueOf(x any) Value {
	switch t := x.(type) {
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	case nil:
		return String("")
	default:
		return String(fmt.Sprint(t))
	}
}

// Datum 一条有序的待核验数据
type Datum struct {
	Key   string
	Value Value
}

// Data 保持插入顺序的待核验数据
type Data []Datum

// D 以键值对构造 Data，便于字面量书写：D("a", 1, "b", true)
func D(kv ...any) Data {
	out := make(Data, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Datum{Key: fmt.Sprint(kv[i]), Value: ValueOf(kv[i+1])})
	}
	return out
}

// DataFromMap 从无序映射构造 Data，按键排序以保证字段顺序稳定。
func DataFromMap(m map[string]any) Data {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Data, 0, len(keys))
	for _, k := range keys {
		out = append(out, Datum{Key: k, Value: ValueOf(m[k])})
	}
	return out
}

// Map 转换为普通映射（丢失顺序）
func (d Data) Map() map[string]any {
	out := make(map[string]any, len(d))
	for _, kv := range d {
		out[kv.Key] = kv.Value.Interface()
	}
	return out
}
