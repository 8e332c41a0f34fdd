package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	deliveryIDKey contextKey = "delivery_id"
)

// WithRequestID 设置 RequestID，API 请求以 X-Request-ID 头携带
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID 获取 RequestID
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithDeliveryID 设置 webhook 投递 ID
func WithDeliveryID(ctx context.Context, deliveryID string) context.Context {
	return context.WithValue(ctx, deliveryIDKey, deliveryID)
}

// DeliveryID 获取 webhook 投递 ID
func DeliveryID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(deliveryIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
