package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/kirokuforms/types"
)

// ============================================================
// Workflow-local interfaces (avoid dependency on agent/)
// ============================================================

// InterruptHandler abstracts the human-in-the-loop adapter for workflow steps.
// *hitl.Handler satisfies it.
type InterruptHandler interface {
	// HandleMap 以原始中断数据发起审核，返回附带 human_verification 记录的新状态
	HandleMap(ctx context.Context, state, raw map[string]any) (map[string]any, error)
}

// ErrReviewPending 审核尚未完成，HumanReviewStep 设置 HaltOnPending 时返回
var ErrReviewPending = errors.New("workflow: human review pending")

// IsReviewPending 判断错误是否为审核挂起
func IsReviewPending(err error) bool {
	return errors.Is(err, ErrReviewPending)
}

// ============================================================
// Step implementations
// ============================================================

// PassthroughStep passes input directly to output.
type PassthroughStep struct{}

func (s *PassthroughStep) Name() string { return "passthrough" }

func (s *PassthroughStep) Execute(ctx context.Context, input any) (any, error) {
	return input, nil
}

// ============================================================
// HumanReviewStep — pauses the chain for a human review
// ============================================================

// HumanReviewStep 把链路状态交给 InterruptHandler。
// 输入必须是 map[string]any 状态（nil 视为空状态），输出是附带审核记录的新状态。
type HumanReviewStep struct {
	StepName string
	// Interrupt 固定的中断数据（title/description/fields/data/wait_for_result）
	Interrupt map[string]any
	// Build 根据当前状态生成中断数据，优先于 Interrupt
	Build   func(state map[string]any) map[string]any
	Handler InterruptHandler
	// HaltOnPending 记录未完成时返回 ErrReviewPending，终止后续步骤
	HaltOnPending bool
}

func (s *HumanReviewStep) Name() string {
	if s.StepName == "" {
		return "human_review"
	}
	return s.StepName
}

func (s *HumanReviewStep) Execute(ctx context.Context, input any) (any, error) {
	if s.Handler == nil {
		return nil, fmt.Errorf("HumanReviewStep: handler not configured")
	}

	var state map[string]any
	switch v := input.(type) {
	case nil:
		state = map[string]any{}
	case map[string]any:
		state = v
	default:
		return nil, fmt.Errorf("HumanReviewStep: input must be map[string]any, got %T", input)
	}

	raw := s.Interrupt
	if s.Build != nil {
		raw = s.Build(state)
	}

	next, err := s.Handler.HandleMap(ctx, state, raw)
	if err != nil {
		return nil, fmt.Errorf("HumanReviewStep: request failed: %w", err)
	}

	if s.HaltOnPending && !reviewCompleted(next) {
		return next, ErrReviewPending
	}
	return next, nil
}

func reviewCompleted(state map[string]any) bool {
	record, ok := state[types.VerificationKey].(map[string]any)
	if !ok {
		return false
	}
	completed, _ := record["completed"].(bool)
	return completed
}

// ============================================================
// CodeStep — executes a Go handler function
// ============================================================

// CodeStep executes custom code via an injected Go handler function.
type CodeStep struct {
	StepName string
	Handler  func(ctx context.Context, input any) (any, error)
}

func (s *CodeStep) Name() string {
	if s.StepName == "" {
		return "code"
	}
	return s.StepName
}

func (s *CodeStep) Execute(ctx context.Context, input any) (any, error) {
	if s.Handler != nil {
		return s.Handler(ctx, input)
	}
	return nil, fmt.Errorf("CodeStep: handler not configured")
}
