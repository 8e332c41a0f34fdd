package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/kirokuforms/internal/ctxkeys"
	"github.com/BaSui01/kirokuforms/internal/metrics"
	"github.com/BaSui01/kirokuforms/types"
)

const (
	// EventTaskCompleted 任务完成事件
	EventTaskCompleted = "hitl.task.completed"
	// SignatureHeader 签名请求头，格式 sha256=<hex>
	SignatureHeader = "X-Webhook-Signature"

	maxBodyBytes = 1 << 20

	// DefaultRetention 无订阅者时完成事件的保留时长
	DefaultRetention = 10 * time.Minute
)

// Event 回调事件
type Event struct {
	EventType string    `json:"eventType"`
	TaskID    string    `json:"taskId"`
	Data      EventData `json:"data"`

	// DeliveryID 接收时分配
	DeliveryID string    `json:"-"`
	ReceivedAt time.Time `json:"-"`
}

// EventData 事件负载
type EventData struct {
	Status   types.TaskStatus `json:"status"`
	FormData map[string]any   `json:"formData"`
}

// Callback 事件回调，在独立 goroutine 中执行
type Callback func(ctx context.Context, ev Event)

// DeliveryID 返回回调 ctx 中携带的投递 ID
func DeliveryID(ctx context.Context) (string, bool) {
	return ctxkeys.DeliveryID(ctx)
}

// Option 配置 Receiver
type Option func(*Receiver)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(r *Receiver) { r.logger = logger }
}

// WithMetrics 记录回调指标
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Receiver) { r.metrics = c }
}

// WithRetention 设置完成事件的保留时长，非正值使用 DefaultRetention
func WithRetention(d time.Duration) Option {
	return func(r *Receiver) {
		if d > 0 {
			r.retention = d
		}
	}
}

// Receiver 回调接收端，可并发使用
type Receiver struct {
	secret    string
	logger    *zap.Logger
	metrics   *metrics.Collector
	retention time.Duration
	now       func() time.Time

	mu        sync.RWMutex
	subs      map[string]map[uint64]chan struct{}
	nextSub   uint64
	callbacks []Callback
	// completed 记录到达时无人订阅的完成事件，供迟到的订阅者取走
	completed map[string]time.Time
}

// NewReceiver 创建接收端。secret 为空时不校验签名。
func NewReceiver(secret string, opts ...Option) *Receiver {
	r := &Receiver{
		secret:    secret,
		retention: DefaultRetention,
		now:       time.Now,
		subs:      make(map[string]map[uint64]chan struct{}),
		completed: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.With(zap.String("component", "webhook"))
	return r
}

// Sign 计算 body 的签名头取值
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 校验签名；secret 为空时总是通过
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	sig := strings.TrimPrefix(signature, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}

// ParseEvent 校验签名并解析事件
func ParseEvent(secret string, body []byte, signature string) (Event, error) {
	if !VerifySignature(secret, body, signature) {
		return Event{}, types.NewError(types.ErrInvalidSignature, "webhook signature mismatch")
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, types.NewError(types.ErrMalformedResponse, "invalid webhook payload").WithCause(err)
	}
	if ev.EventType == "" || ev.TaskID == "" {
		return Event{}, types.NewError(types.ErrMalformedResponse, "webhook payload missing eventType or taskId")
	}
	return ev, nil
}

// OnEvent 注册事件回调
func (r *Receiver) OnEvent(cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Subscribe 返回任务的唤醒通道与取消函数。
// 若该任务的完成事件已在保留期内到达，通道中已有一个信号，且该事件随之释放。
func (r *Receiver) Subscribe(taskID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	r.mu.Lock()
	r.nextSub++
	id := r.nextSub
	if r.subs[taskID] == nil {
		r.subs[taskID] = make(map[uint64]chan struct{})
	}
	r.subs[taskID][id] = ch
	if at, ok := r.completed[taskID]; ok {
		delete(r.completed, taskID)
		if r.now().Sub(at) <= r.retention {
			ch <- struct{}{}
		}
	}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs[taskID], id)
			if len(r.subs[taskID]) == 0 {
				delete(r.subs, taskID)
			}
		})
	}
}

// ServeHTTP 处理回调请求
func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		r.metrics.RecordWebhookEvent("unknown", "bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read body"})
		return
	}

	ev, err := ParseEvent(r.secret, body, req.Header.Get(SignatureHeader))
	if err != nil {
		status, result := http.StatusBadRequest, "bad_request"
		if types.IsErrorCode(err, types.ErrInvalidSignature) {
			status, result = http.StatusUnauthorized, "invalid_signature"
		}
		r.logger.Warn("rejected webhook delivery", zap.Int("status", status), zap.Error(err))
		r.metrics.RecordWebhookEvent("unknown", result)
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	ev.DeliveryID = uuid.NewString()
	ev.ReceivedAt = r.now()
	r.dispatch(ctxkeys.WithDeliveryID(context.WithoutCancel(req.Context()), ev.DeliveryID), ev)
	r.metrics.RecordWebhookEvent(ev.EventType, "accepted")

	writeJSON(w, http.StatusAccepted, map[string]any{"received": true, "id": ev.DeliveryID})
}

func (r *Receiver) dispatch(ctx context.Context, ev Event) {
	r.mu.Lock()
	r.prune(ev.ReceivedAt)
	callbacks := append([]Callback(nil), r.callbacks...)
	if ev.EventType == EventTaskCompleted {
		if len(r.subs[ev.TaskID]) == 0 {
			r.completed[ev.TaskID] = ev.ReceivedAt
		}
		for _, ch := range r.subs[ev.TaskID] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
	r.mu.Unlock()

	r.logger.Info("webhook event received",
		zap.String("event", ev.EventType),
		zap.String("task_id", ev.TaskID),
		zap.String("delivery_id", ev.DeliveryID),
	)

	for _, cb := range callbacks {
		go func(cb Callback) {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("webhook callback panicked", zap.Any("panic", p))
				}
			}()
			cb(ctx, ev)
		}(cb)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// prune 清理超出保留期的完成事件，调用方持有写锁
func (r *Receiver) prune(now time.Time) {
	for taskID, at := range r.completed {
		if now.Sub(at) > r.retention {
			delete(r.completed, taskID)
		}
	}
}
