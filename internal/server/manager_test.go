package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/kirokuforms/config"
)

func testConfig() config.WebhookConfig {
	cfg := config.DefaultWebhookConfig()
	cfg.ListenAddr = "127.0.0.1:0" // random port
	return cfg
}

// --- NewManager ---

func TestNewManager(t *testing.T) {
	cfg := config.DefaultWebhookConfig()
	cfg.ShutdownTimeout = 0
	m := NewManager(http.NewServeMux(), cfg, nil)

	require.NotNil(t, m)
	assert.False(t, m.IsRunning())
	assert.Equal(t, ":4444", m.Addr())
	assert.Equal(t, 10*time.Second, m.ShutdownTimeout())
	assert.NotNil(t, m.server.TLSConfig)
}

// --- Start / Shutdown lifecycle ---

func TestManager_StartAndShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	m := NewManager(handler, testConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	assert.True(t, m.IsRunning())

	resp, err := http.Get("http://" + m.Addr() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())
}

func TestManager_DoubleStart(t *testing.T) {
	m := NewManager(http.NewServeMux(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestManager_ShutdownIdempotent(t *testing.T) {
	m := NewManager(http.NewServeMux(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_StartAfterShutdown(t *testing.T) {
	m := NewManager(http.NewServeMux(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	require.NoError(t, m.Shutdown(context.Background()))

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestManager_PartialTLSConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TLSCertFile = "cert.pem"
	m := NewManager(http.NewServeMux(), cfg, zap.NewNop())

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls_key_file")
}

func TestManager_Run(t *testing.T) {
	m := NewManager(http.NewServeMux(), testConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, m.IsRunning, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, m.IsRunning())
}

func TestManager_Errors(t *testing.T) {
	m := NewManager(http.NewServeMux(), testConfig(), zap.NewNop())

	select {
	case <-m.Errors():
		t.Fatal("should not have received an error")
	default:
	}
}
