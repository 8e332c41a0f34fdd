package kiroku

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/kirokuforms/internal/ctxkeys"
	"github.com/BaSui01/kirokuforms/internal/metrics"
	"github.com/BaSui01/kirokuforms/internal/retry"
	"github.com/BaSui01/kirokuforms/internal/telemetry"
	"github.com/BaSui01/kirokuforms/types"
)

// maxResponseBytes 单个响应体读取上限
const maxResponseBytes = 10 << 20

// Transport 对 KirokuForms API 发起认证请求。
// 只有传输层失败（连接错误、超时、非 2xx）会被重试；信封层错误直接返回。
type Transport struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	retryer    *retry.Retryer
	limiter    *rate.Limiter
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// transportError 一次失败的 HTTP 尝试
type transportError struct {
	status int
	body   string
	err    error
}

func (e *transportError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

func (e *transportError) Unwrap() error { return e.err }

// WithRequestID 返回携带请求 ID 的 ctx，之后的 API 请求以 X-Request-ID 头发送
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return ctxkeys.WithRequestID(ctx, requestID)
}

// envelope 服务端统一响应信封
type envelope struct {
	Success any             `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// URL 拼接基础地址与端点路径，去掉重复的分隔符
func (t *Transport) URL(endpoint string) string {
	u := t.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	return strings.TrimRight(u, "/")
}

// Request 发起请求并以映射形式返回信封中的 data（缺省为空映射）
func (t *Transport) Request(ctx context.Context, method, endpoint string, body any) (map[string]any, error) {
	data := map[string]any{}
	if err := t.Do(ctx, method, endpoint, body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Do 发起请求并把信封中的 data 解码到 out。out 为 nil 时丢弃 data。
func (t *Transport) Do(ctx context.Context, method, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	url := t.URL(endpoint)
	ctx, span := telemetry.Tracer().Start(ctx, "kiroku "+method+" "+metrics.EndpointLabel(endpoint),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)
	defer span.End()

	t.logger.Debug("making request", zap.String("method", method), zap.String("url", url))

	raw, err := retry.DoWithResult(ctx, t.retryer, func(attempt int) ([]byte, error) {
		if attempt > 0 {
			t.metrics.RecordRetry(endpoint)
			span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		}
		return t.attempt(ctx, method, url, endpoint, payload)
	})
	if err != nil {
		err = t.classify(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := decodeEnvelope(raw, out); err != nil {
		t.logger.Error("API request failed", zap.String("url", url), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// attempt 执行一次 HTTP 往返，返回 2xx 响应体
func (t *Transport) attempt(ctx context.Context, method, url, endpoint string, payload []byte) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &transportError{err: err}
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &transportError{err: err}
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if id, ok := ctxkeys.RequestID(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.metrics.RecordRequest(method, endpoint, 0, time.Since(start))
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	t.metrics.RecordRequest(method, endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &transportError{status: resp.StatusCode, err: fmt.Errorf("read response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &transportError{status: resp.StatusCode, body: snippet(raw)}
	}
	return raw, nil
}

// classify 把重试器返回的错误映射为客户端错误类别
func (t *Transport) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return types.NewError(types.ErrCanceled, "request canceled").WithCause(err)
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		cerr := types.NewError(types.ErrConnection, "Failed to connect to KirokuForms API").
			WithCause(exhausted.Err).
			WithRetryable(true)
		var te *transportError
		if errors.As(exhausted.Err, &te) {
			cerr.WithHTTPStatus(te.status)
		}
		t.logger.Error("request failed after retries",
			zap.Int("max_retries", exhausted.Attempts-1),
			zap.Error(exhausted.Err),
		)
		return cerr
	}
	return err
}

// decodeEnvelope 解析响应信封：非 JSON → MALFORMED_RESPONSE；success 为假 → SERVICE_ERROR
func decodeEnvelope(raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return types.NewError(types.ErrMalformedResponse, "Invalid response from API: "+string(raw)).WithCause(err)
	}

	if !truthy(env.Success) {
		code, msg := types.UnknownServiceCode, "Unknown error"
		if env.Error != nil {
			if env.Error.Code != "" {
				code = env.Error.Code
			}
			if env.Error.Message != "" {
				msg = env.Error.Message
			}
		}
		return types.NewError(types.ErrService, msg).WithServiceCode(code)
	}

	if out == nil {
		return nil
	}
	data := env.Data
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return types.NewError(types.ErrMalformedResponse, "Invalid response data: "+string(data)).WithCause(err)
	}
	return nil
}

// truthy 按 JSON 值的真值语义判断 success 字段
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return false
	}
}

func snippet(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
