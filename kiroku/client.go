package kiroku

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/kirokuforms/config"
	"github.com/BaSui01/kirokuforms/internal/metrics"
	"github.com/BaSui01/kirokuforms/internal/retry"
	"github.com/BaSui01/kirokuforms/internal/telemetry"
	"github.com/BaSui01/kirokuforms/internal/tlsutil"
	"github.com/BaSui01/kirokuforms/types"
)

const (
	endpointCreateTask = "tools/request-human-review"
	endpointTasks      = "resources/hitl/tasks"
)

// Client KirokuForms 任务生命周期客户端，构造后可并发使用
type Client struct {
	cfg       config.ClientConfig
	transport *Transport
	logger    *zap.Logger
	metrics   *metrics.Collector
	now       func() time.Time
	sleep     retry.SleepFunc
	newTaskID func() string
}

// CreateTaskRequest 创建任务的参数
type CreateTaskRequest struct {
	Title       string
	Description string
	// Fields 为 nil 表示未提供；非 nil 的空切片在无模板时被拒绝
	Fields []types.Field
	TemplateID  string
	InitialData map[string]any
	Expiration  string
	// Priority 为空时按 medium 发送
	Priority    types.Priority
	TaskID      string
	CallbackURL string
}

// ListOptions 列表查询参数
type ListOptions struct {
	Status types.TaskStatus
	Limit  int // 0 表示默认 10
	Offset int
}

// UUIDTaskID 生成 "task-<uuid>" 形式的外部任务 ID
func UUIDTaskID() string {
	return "task-" + uuid.NewString()
}

// New 创建客户端。cfg 的零值字段取 config.DefaultClientConfig 中的默认值。
func New(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	cfg = withDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, types.NewConfigurationError(err.Error()).WithCause(err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.sleep == nil {
		o.sleep = retry.Sleep
	}
	if o.jitter == nil {
		o.jitter = retry.FractionalSecond
	}
	if o.httpClient == nil {
		o.httpClient = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	if o.limiter == nil && cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if o.userAgent == "" {
		o.userAgent = "kirokuforms-go/" + telemetry.BuildVersion()
	}

	logger := o.logger.With(zap.String("component", "kiroku"))
	policy := &retry.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		Jitter:     o.jitter,
	}

	c := &Client{
		cfg:       cfg,
		logger:    logger,
		metrics:   o.metrics,
		now:       o.now,
		sleep:     o.sleep,
		newTaskID: o.newTaskID,
	}
	c.transport = &Transport{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		userAgent:  o.userAgent,
		httpClient: o.httpClient,
		retryer:    retry.NewRetryer(policy, logger, retry.WithClock(o.now), retry.WithSleep(o.sleep)),
		limiter:    o.limiter,
		metrics:    o.metrics,
		logger:     logger,
	}
	return c, nil
}

func withDefaults(cfg config.ClientConfig) config.ClientConfig {
	def := config.DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = def.WaitTimeout
	}
	return cfg
}

// Config 返回客户端配置的副本
func (c *Client) Config() config.ClientConfig { return c.cfg }

// Transport 返回底层传输层
func (c *Client) Transport() *Transport { return c.transport }

// CreateTask 创建 HITL 任务
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*types.Task, error) {
	if req.Fields == nil && req.TemplateID == "" {
		return nil, types.NewConfigurationError("either fields or template_id must be provided")
	}
	if req.TemplateID == "" && len(req.Fields) == 0 {
		return nil, types.NewConfigurationError("at least one field is required when not using a template")
	}
	if err := types.ValidateFields(req.Fields); err != nil {
		return nil, err
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return nil, types.NewConfigurationError(fmt.Sprintf("invalid priority %q", req.Priority))
	}

	payload := c.buildCreatePayload(req)

	source := "fields"
	if req.TemplateID != "" {
		source = "template"
	}
	c.logger.Debug("creating HITL task",
		zap.String("title", req.Title),
		zap.String("source", source),
		zap.Int("fields", len(req.Fields)),
	)

	var task types.Task
	if err := c.transport.Do(ctx, http.MethodPost, endpointCreateTask, payload, &task); err != nil {
		return nil, err
	}
	c.metrics.RecordTaskCreated(source)
	c.logger.Info("HITL task created",
		zap.String("task_id", task.TaskID),
		zap.String("form_url", task.FormURL),
	)
	return &task, nil
}

func (c *Client) buildCreatePayload(req CreateTaskRequest) map[string]any {
	initial := req.InitialData
	if initial == nil {
		initial = map[string]any{}
	}
	payload := map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"initialData": initial,
	}

	settings := map[string]any{}
	if req.Expiration != "" {
		settings["expiration"] = req.Expiration
	}
	priority := req.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	settings["priority"] = string(priority)
	taskID := req.TaskID
	if taskID == "" && c.newTaskID != nil {
		taskID = c.newTaskID()
	}
	if taskID != "" {
		settings["taskId"] = taskID
	}
	callback := req.CallbackURL
	if callback == "" {
		callback = c.cfg.WebhookURL
	}
	if callback != "" {
		settings["callbackUrl"] = callback
	}
	payload["settings"] = settings

	if req.TemplateID != "" {
		payload["templateId"] = req.TemplateID
		if len(req.Fields) > 0 {
			payload["fields"] = req.Fields
		}
	} else {
		payload["fields"] = req.Fields
	}
	return payload
}

// CreateVerificationTask 为一组数据创建核验任务。req.Fields 为 nil 时按数据合成字段。
func (c *Client) CreateVerificationTask(ctx context.Context, data types.Data, req CreateTaskRequest) (*types.Task, error) {
	if req.Fields == nil {
		req.Fields = VerificationFields(data)
	}
	return c.CreateTask(ctx, req)
}

// GetTask 查询任务状态
func (c *Client) GetTask(ctx context.Context, taskID string) (*types.TaskDetail, error) {
	var detail types.TaskDetail
	if err := c.transport.Do(ctx, http.MethodGet, taskPath(taskID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListTasks 列出任务，返回原始 data 映射
func (c *Client) ListTasks(ctx context.Context, opts ListOptions) (map[string]any, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(opts.Offset))
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	return c.transport.Request(ctx, http.MethodGet, endpointTasks+"?"+q.Encode(), nil)
}

// CancelTask 取消任务
func (c *Client) CancelTask(ctx context.Context, taskID string) (*types.TaskDetail, error) {
	var detail types.TaskDetail
	if err := c.transport.Do(ctx, http.MethodPost, taskPath(taskID)+"/cancel", nil, &detail); err != nil {
		return nil, err
	}
	c.logger.Info("HITL task canceled", zap.String("task_id", taskID))
	return &detail, nil
}

func taskPath(taskID string) string {
	return endpointTasks + "/" + url.PathEscape(taskID)
}
