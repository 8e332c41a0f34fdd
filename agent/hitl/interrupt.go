package hitl

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/kirokuforms/internal/metrics"
	"github.com/BaSui01/kirokuforms/kiroku"
	"github.com/BaSui01/kirokuforms/types"
)

const (
	DefaultTitle       = "Human Verification Required"
	DefaultDescription = "Please verify the following information"
)

// InterruptData 描述一次中断请求
type InterruptData struct {
	Title       string
	Description string
	// Fields 为 nil 表示未提供；此时若 Data 非 nil 则创建核验任务
	Fields []types.Field
	Data   types.Data
	// WaitForResult 为 nil 时默认等待
	WaitForResult *bool
}

func (d InterruptData) wait() bool {
	return d.WaitForResult == nil || *d.WaitForResult
}

// TaskClient Handler 依赖的任务生命周期操作，*kiroku.Client 满足此接口
type TaskClient interface {
	CreateTask(ctx context.Context, req kiroku.CreateTaskRequest) (*types.Task, error)
	CreateVerificationTask(ctx context.Context, data types.Data, req kiroku.CreateTaskRequest) (*types.Task, error)
	GetTaskResult(ctx context.Context, taskID string, opts ...kiroku.WaitOption) (map[string]any, error)
}

// WakeSource 任务完成通知来源，webhook.Receiver 满足此接口
type WakeSource interface {
	Subscribe(taskID string) (<-chan struct{}, func())
}

// Handler 中断处理器，可并发使用
type Handler struct {
	client   TaskClient
	logger   *zap.Logger
	metrics  *metrics.Collector
	timeout  time.Duration
	validate bool
	wake     WakeSource
	now      func() time.Time

	pending map[string]*pendingInterrupt
	mu      sync.RWMutex
}

type pendingInterrupt struct {
	record    types.Verification
	fields    []types.Field
	createdAt time.Time
}

// HandlerOption 配置 Handler
type HandlerOption func(*Handler)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithMetrics 记录中断结果指标
func WithMetrics(c *metrics.Collector) HandlerOption {
	return func(h *Handler) { h.metrics = c }
}

// WithWaitTimeout 覆盖客户端默认的等待上限
func WithWaitTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.timeout = d }
}

// WithSubmissionValidation 完成后按字段集合校验提交数据
func WithSubmissionValidation(enabled bool) HandlerOption {
	return func(h *Handler) { h.validate = enabled }
}

// WithWakeSource 等待期间收到完成通知时立即重新查询
func WithWakeSource(src WakeSource) HandlerOption {
	return func(h *Handler) { h.wake = src }
}

// NewHandler 创建中断处理器
func NewHandler(client TaskClient, opts ...HandlerOption) *Handler {
	h := &Handler{
		client:  client,
		now:     time.Now,
		pending: make(map[string]*pendingInterrupt),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	h.logger = h.logger.With(zap.String("component", "hitl_handler"))
	return h
}

// Interrupt 创建审核任务并返回核验记录。
// 等待超时返回 pending 记录且不报错；其他错误原样返回。
func (h *Handler) Interrupt(ctx context.Context, data InterruptData) (types.Verification, error) {
	req := kiroku.CreateTaskRequest{
		Title:       data.Title,
		Description: data.Description,
	}
	if req.Title == "" {
		req.Title = DefaultTitle
	}
	if req.Description == "" {
		req.Description = DefaultDescription
	}

	var (
		task   *types.Task
		fields []types.Field
		err    error
	)
	if len(data.Fields) == 0 && len(data.Data) > 0 {
		fields = kiroku.VerificationFields(data.Data)
		task, err = h.client.CreateVerificationTask(ctx, data.Data, req)
	} else {
		fields = data.Fields
		if fields == nil {
			fields = []types.Field{}
		}
		req.Fields = fields
		task, err = h.client.CreateTask(ctx, req)
	}
	if err != nil {
		h.metrics.RecordInterrupt("error")
		return types.Verification{}, err
	}

	record := types.Verification{
		TaskID:  task.TaskID,
		FormURL: task.FormURL,
	}
	h.logger.Info("interrupt created",
		zap.String("task_id", task.TaskID),
		zap.String("form_url", task.FormURL),
		zap.Bool("wait", data.wait()),
	)

	if !data.wait() {
		h.track(record, fields)
		h.metrics.RecordInterrupt("pending")
		return record, nil
	}

	result, err := h.await(ctx, task.TaskID)
	if err != nil {
		if types.IsTimeout(err) {
			h.logger.Warn("timeout waiting for human input",
				zap.String("task_id", task.TaskID),
				zap.Error(err),
			)
			h.track(record, fields)
			h.metrics.RecordInterrupt("pending")
			return record, nil
		}
		h.metrics.RecordInterrupt("error")
		return types.Verification{}, err
	}

	if err := h.check(fields, result); err != nil {
		h.metrics.RecordInterrupt("error")
		return types.Verification{}, err
	}

	record.Completed = true
	record.Result = result
	h.metrics.RecordInterrupt("completed")
	return record, nil
}

func (h *Handler) await(ctx context.Context, taskID string) (map[string]any, error) {
	var opts []kiroku.WaitOption
	if h.timeout > 0 {
		opts = append(opts, kiroku.WithTimeout(h.timeout))
	}
	if h.wake != nil {
		ch, unsubscribe := h.wake.Subscribe(taskID)
		defer unsubscribe()
		opts = append(opts, kiroku.WithWake(ch))
	}
	return h.client.GetTaskResult(ctx, taskID, opts...)
}

func (h *Handler) check(fields []types.Field, result map[string]any) error {
	if !h.validate || len(fields) == 0 {
		return nil
	}
	if err := kiroku.ValidateSubmission(fields, result); err != nil {
		h.logger.Warn("submission failed validation", zap.Error(err))
		return err
	}
	return nil
}

// Handle 返回一个新状态：state 的浅拷贝加上 human_verification 记录。state 不会被修改。
func (h *Handler) Handle(ctx context.Context, state map[string]any, data InterruptData) (map[string]any, error) {
	record, err := h.Interrupt(ctx, data)
	if err != nil {
		return nil, err
	}
	return WithVerification(state, record), nil
}

// HandleMap 与 Handle 相同，但中断参数来自无类型映射
func (h *Handler) HandleMap(ctx context.Context, state, raw map[string]any) (map[string]any, error) {
	data, err := InterruptDataFromMap(raw)
	if err != nil {
		return nil, err
	}
	return h.Handle(ctx, state, data)
}

// WithVerification 把记录合并进 state 的拷贝
func WithVerification(state map[string]any, record types.Verification) map[string]any {
	out := make(map[string]any, len(state)+1)
	for k, v := range state {
		out[k] = v
	}
	out[types.VerificationKey] = record.Map()
	return out
}

// --- pending 记录 ---

func (h *Handler) track(record types.Verification, fields []types.Field) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[record.TaskID] = &pendingInterrupt{
		record:    record,
		fields:    fields,
		createdAt: h.now(),
	}
}

func (h *Handler) forget(taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, taskID)
}

// Pending 返回尚未完成的核验记录
func (h *Handler) Pending() []types.Verification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]types.Verification, 0, len(h.pending))
	for _, p := range h.pending {
		out = append(out, p.record)
	}
	return out
}

// Resolve 对 pending 任务做一次不等待的查询。
// done 为 true 时记录已离开 pending 集合：完成时 record 带结果，
// 过期或取消时 err 为 TIMEOUT 错误。
func (h *Handler) Resolve(ctx context.Context, taskID string) (record types.Verification, done bool, err error) {
	h.mu.RLock()
	p, ok := h.pending[taskID]
	h.mu.RUnlock()
	if !ok {
		return types.Verification{}, false, types.NewError(types.ErrConfiguration, "no pending interrupt for task "+taskID)
	}

	result, err := h.client.GetTaskResult(ctx, taskID, kiroku.NoWait())
	if err != nil {
		if e, ok := types.AsError(err); ok && e.Code == types.ErrTimeout {
			if e.LastStatus.IsTerminal() {
				h.forget(taskID)
				h.metrics.RecordInterrupt("abandoned")
				return p.record, true, err
			}
			return p.record, false, nil
		}
		return p.record, false, err
	}

	if err := h.check(p.fields, result); err != nil {
		h.forget(taskID)
		return p.record, true, err
	}

	record = p.record
	record.Completed = true
	record.Result = result
	h.forget(taskID)
	h.metrics.RecordInterrupt("completed")
	h.logger.Info("pending interrupt resolved", zap.String("task_id", taskID))
	return record, true, nil
}
