package workflow

import (
	"context"
	"fmt"
)

// Runnable is the common execution interface shared by Step and Workflow.
// It represents any unit of work that can be executed with input and produce output.
type Runnable interface {
	Execute(ctx context.Context, input any) (any, error)
}

// Workflow 工作流接口
// Workflow 是预定义的步骤序列，提供可预测和一致的执行
type Workflow interface {
	Runnable
	// Name 返回工作流名称
	Name() string
	// Description 返回工作流描述
	Description() string
}

// Step 工作流步骤接口
type Step interface {
	Runnable
	// Name 返回步骤名称
	Name() string
}

// StepFunc 步骤函数类型
type StepFunc func(ctx context.Context, input any) (any, error)

// FuncStep 函数步骤实现
type FuncStep struct {
	name string
	fn   StepFunc
}

// NewFuncStep 创建函数步骤
func NewFuncStep(name string, fn StepFunc) *FuncStep {
	return &FuncStep{
		name: name,
		fn:   fn,
	}
}

func (s *FuncStep) Execute(ctx context.Context, input any) (any, error) {
	return s.fn(ctx, input)
}

func (s *FuncStep) Name() string {
	return s.name
}

// ChainWorkflow 顺序链式工作流
// 将任务分解为固定的步骤序列，每个步骤处理前一步的输出
type ChainWorkflow struct {
	name        string
	description string
	steps       []Step
}

// NewChainWorkflow 创建链式工作流
func NewChainWorkflow(name, description string, steps ...Step) *ChainWorkflow {
	return &ChainWorkflow{
		name:        name,
		description: description,
		steps:       steps,
	}
}

// Execute 执行链式工作流
// 按顺序执行每个步骤，将前一步的输出作为下一步的输入。
// 步骤返回 ErrReviewPending 时链路停止，返回该步骤的输出和错误，调用方稍后可从该状态恢复。
func (w *ChainWorkflow) Execute(ctx context.Context, input any) (any, error) {
	emit, hasEmitter := streamEmitterFromContext(ctx)
	current := input

	for i, step := range w.steps {
		// 检查上下文是否已取消
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if hasEmitter {
			emit(StreamEvent{Type: EventStepStart, Step: step.Name(), Index: i})
		}

		result, err := step.Execute(ctx, current)
		if IsReviewPending(err) {
			if hasEmitter {
				emit(StreamEvent{Type: EventReviewPending, Step: step.Name(), Index: i, Data: result})
			}
			return result, err
		}
		if err != nil {
			if hasEmitter {
				emit(StreamEvent{Type: EventStepError, Step: step.Name(), Index: i, Error: err})
			}
			return nil, fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name(), err)
		}

		if hasEmitter {
			emit(StreamEvent{Type: EventStepComplete, Step: step.Name(), Index: i, Data: result})
		}
		current = result
	}

	return current, nil
}

func (w *ChainWorkflow) Name() string {
	return w.name
}

func (w *ChainWorkflow) Description() string {
	return w.description
}

// AddStep 添加步骤
func (w *ChainWorkflow) AddStep(step Step) {
	w.steps = append(w.steps, step)
}

// Steps 返回所有步骤
func (w *ChainWorkflow) Steps() []Step {
	return w.steps
}

// =============================================================================
// Workflow Streaming
// =============================================================================

// StreamEventType defines the type of workflow stream event.
type StreamEventType string

const (
	// EventStepStart is emitted before a step begins execution.
	EventStepStart StreamEventType = "step_start"
	// EventStepComplete is emitted after a step finishes successfully.
	EventStepComplete StreamEventType = "step_complete"
	// EventStepError is emitted when a step fails.
	EventStepError StreamEventType = "step_error"
	// EventReviewPending is emitted when a human review step halts the chain.
	EventReviewPending StreamEventType = "review_pending"
)

// StreamEvent carries information about a workflow execution event.
type StreamEvent struct {
	Type  StreamEventType `json:"type"`
	Step  string          `json:"step"`
	Index int             `json:"index"`
	Data  any             `json:"data,omitempty"`
	Error error           `json:"-"`
}

// StreamEmitter is a callback that receives workflow stream events.
type StreamEmitter func(StreamEvent)

type streamEmitterKey struct{}

// WithStreamEmitter stores a StreamEmitter in the context.
func WithStreamEmitter(ctx context.Context, emitter StreamEmitter) context.Context {
	if emitter == nil {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, streamEmitterKey{}, emitter)
}

func streamEmitterFromContext(ctx context.Context) (StreamEmitter, bool) {
	if ctx == nil {
		return nil, false
	}
	emit, ok := ctx.Value(streamEmitterKey{}).(StreamEmitter)
	return emit, ok && emit != nil
}
