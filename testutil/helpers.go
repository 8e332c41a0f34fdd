// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	testutil.AssertErrorCode(t, err, types.ErrTimeout)
//	v, ok := testutil.WaitForChannel(ch, time.Second)
// =============================================================================
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/kirokuforms/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回 30 秒超时的测试上下文，测试结束时自动取消
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertErrorCode 断言错误链中存在指定错误码的 *types.Error
func AssertErrorCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Errorf("expected error with code %s but got nil", code)
		return
	}
	if !types.IsErrorCode(err, code) {
		t.Errorf("error code mismatch: expected %s, got %q (%v)", code, types.GetErrorCode(err), err)
	}
}

// =============================================================================
// ⏱️ 时间辅助
// =============================================================================

// WaitFor 每 10ms 检查一次条件，满足返回 true，超时返回 false
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

// WaitForChannel 等待通道接收或超时
func WaitForChannel[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}
