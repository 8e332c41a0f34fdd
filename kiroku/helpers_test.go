package kiroku

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BaSui01/kirokuforms/config"
	"github.com/BaSui01/kirokuforms/internal/retry"
	"github.com/BaSui01/kirokuforms/testutil/mocks"
	"github.com/BaSui01/kirokuforms/types"
)

// fakeClock 注入的时钟：sleep 推进时间并记录等待时长
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	delays []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.delays = append(c.delays, d)
	return nil
}

func (c *fakeClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.delays))
	copy(out, c.delays)
	return out
}

func testConfig(svc *mocks.MockService) config.ClientConfig {
	cfg := config.DefaultClientConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = svc.URL()
	return cfg
}

func newTestClient(t testing.TB, svc *mocks.MockService, opts ...Option) (*Client, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	base := []Option{
		WithClock(clock.now),
		WithSleep(clock.sleep),
		WithJitter(retry.NoJitter),
	}
	c, err := New(testConfig(svc), append(base, opts...)...)
	require.NoError(t, err)
	return c, clock
}

func textField(name string) []types.Field {
	return []types.Field{{Type: types.FieldTypeText, Name: name, Required: true}}
}
