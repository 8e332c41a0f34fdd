package types

import (
	"encoding/json"
	"fmt"
)

// SchemaType JSON Schema 基本类型
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// StringFormat 字符串格式注解
type StringFormat string

const (
	FormatDate  StringFormat = "date"
	FormatEmail StringFormat = "email"
)

// SchemaDraft 生成的 schema 使用的方言
const SchemaDraft = "https://json-schema.org/draft/2020-12/schema"

// JSONSchema 提交数据校验所需的 JSON Schema 子集
type JSONSchema struct {
	Schema      string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type SchemaType `json:"type,omitempty"`

	// Object properties
	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`

	// Array items
	Items *JSONSchema `json:"items,omitempty"`

	Enum  []any         `json:"enum,omitempty"`
	AnyOf []*JSONSchema `json:"anyOf,omitempty"`

	Format  StringFormat `json:"format,omitempty"`
	Default any          `json:"default,omitempty"`
}

// NewObjectSchema creates a new object schema.
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{
		Type:       SchemaTypeObject,
		Properties: make(map[string]*JSONSchema),
	}
}

// NewArraySchema creates a new array schema.
func NewArraySchema(items *JSONSchema) *JSONSchema {
	return &JSONSchema{
		Type:  SchemaTypeArray,
		Items: items,
	}
}

// NewStringSchema creates a new string schema.
func NewStringSchema() *JSONSchema {
	return &JSONSchema{Type: SchemaTypeString}
}

// NewEnumSchema creates a new enum schema.
func NewEnumSchema(values ...any) *JSONSchema {
	return &JSONSchema{Enum: values}
}

// NewAnyOfSchema 满足任一子 schema 即可
func NewAnyOfSchema(schemas ...*JSONSchema) *JSONSchema {
	return &JSONSchema{AnyOf: schemas}
}

// AddProperty adds a property to an object schema.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired adds required field names.
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	s.Required = append(s.Required, names...)
	return s
}

// WithDescription sets the description.
func (s *JSONSchema) WithDescription(desc string) *JSONSchema {
	s.Description = desc
	return s
}

// ToJSON serializes the schema to JSON.
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// FromJSON deserializes a schema from JSON.
func FromJSON(data []byte) (*JSONSchema, error) {
	var schema JSONSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON schema: %w", err)
	}
	return &schema, nil
}

// Schema 返回单个字段取值的 schema。
// number 同时接受字符串（表单常以文本提交数字）；带选项的 radio/select 限定为选项值。
func (f Field) Schema() *JSONSchema {
	var s *JSONSchema
	switch f.Type {
	case FieldTypeNumber:
		s = NewAnyOfSchema(&JSONSchema{Type: SchemaTypeNumber}, NewStringSchema())
	case FieldTypeRadio, FieldTypeSelect:
		if len(f.Options) == 0 {
			s = NewStringSchema()
			break
		}
		values := make([]any, 0, len(f.Options))
		for _, opt := range f.Options {
			values = append(values, opt.Value)
		}
		s = NewEnumSchema(values...)
	case FieldTypeCheckbox:
		s = NewAnyOfSchema(
			&JSONSchema{Type: SchemaTypeBoolean},
			NewStringSchema(),
			NewArraySchema(NewStringSchema()),
		)
	case FieldTypeEmail:
		s = &JSONSchema{Type: SchemaTypeString, Format: FormatEmail}
	case FieldTypeDate:
		s = &JSONSchema{Type: SchemaTypeString, Format: FormatDate}
	default:
		s = NewStringSchema()
	}
	s.Title = f.Label
	return s
}

// SubmissionSchema 由字段集合生成提交数据的对象 schema，必填字段进入 required。
// 未声明的属性允许出现。
func SubmissionSchema(fields []Field) *JSONSchema {
	s := NewObjectSchema()
	s.Schema = SchemaDraft
	for _, f := range fields {
		s.AddProperty(f.Name, f.Schema())
		if f.Required {
			s.AddRequired(f.Name)
		}
	}
	return s
}
