package kiroku

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/BaSui01/kirokuforms/types"
)

const submissionSchemaURL = "submission.json"

// CompileSubmissionSchema 编译字段集合对应的 schema
func CompileSubmissionSchema(fields []types.Field) (*jsonschema.Schema, error) {
	raw, err := types.SubmissionSchema(fields).ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal submission schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(submissionSchemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add submission schema: %w", err)
	}
	schema, err := compiler.Compile(submissionSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile submission schema: %w", err)
	}
	return schema, nil
}

// ValidateSubmission 校验提交数据是否满足字段集合，失败返回 INVALID_SUBMISSION
func ValidateSubmission(fields []types.Field, data map[string]any) error {
	schema, err := CompileSubmissionSchema(fields)
	if err != nil {
		return err
	}

	// 统一为 JSON 解码后的值（整数等 Go 类型无法直接校验）
	raw, err := json.Marshal(data)
	if err != nil {
		return types.NewError(types.ErrInvalidSubmission, "submission is not JSON encodable").WithCause(err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return types.NewError(types.ErrInvalidSubmission, "submission is not JSON encodable").WithCause(err)
	}

	if err := schema.Validate(doc); err != nil {
		return types.NewError(types.ErrInvalidSubmission, err.Error()).WithCause(err)
	}
	return nil
}
