package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/kirokuforms/config"
	"github.com/BaSui01/kirokuforms/internal/tlsutil"
)

// =============================================================================
// 🌐 Webhook 服务管理器
// =============================================================================

// Manager 管理 webhook 接收服务的生命周期：非阻塞启动、优雅关闭、异步错误传播
type Manager struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	cfg      config.WebhookConfig
	logger   *zap.Logger
	mu       sync.RWMutex
	closed   bool
}

// NewManager 创建服务管理器，http.Server 使用加固的 TLS 配置与超时
func NewManager(handler http.Handler, cfg config.WebhookConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = config.DefaultWebhookConfig().ShutdownTimeout
	}

	return &Manager{
		server: tlsutil.SecureServer(cfg.ListenAddr, handler),
		errCh:  make(chan error, 1),
		cfg:    cfg,
		logger: logger.With(zap.String("component", "webhook_server")),
	}
}

// Start 启动服务（非阻塞）。配置了证书与私钥时以 HTTPS 监听
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("server is closed")
	}
	if m.listener != nil {
		return fmt.Errorf("server already started")
	}

	tlsEnabled := m.cfg.TLSCertFile != "" || m.cfg.TLSKeyFile != ""
	if tlsEnabled && (m.cfg.TLSCertFile == "" || m.cfg.TLSKeyFile == "") {
		return fmt.Errorf("both tls_cert_file and tls_key_file are required for TLS")
	}

	listener, err := net.Listen("tcp", m.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.cfg.ListenAddr, err)
	}
	m.listener = listener

	m.logger.Info("starting webhook server",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", tlsEnabled),
	)

	go m.serve(listener, tlsEnabled)
	return nil
}

func (m *Manager) serve(listener net.Listener, tlsEnabled bool) {
	var err error
	if tlsEnabled {
		err = m.server.ServeTLS(listener, m.cfg.TLSCertFile, m.cfg.TLSKeyFile)
	} else {
		err = m.server.Serve(listener)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error("webhook server failed", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}
}

// Shutdown 在 ShutdownTimeout 内排空请求并关闭服务，重复调用无副作用
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	shutdownCtx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()

	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("webhook server shutdown failed", zap.Error(err))
		return err
	}
	m.listener = nil

	m.logger.Info("webhook server stopped")
	return nil
}

// Run 启动服务并阻塞，直到 ctx 结束或服务异常退出，随后优雅关闭。
// ctx 正常结束时返回 nil。
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		m.logger.Info("shutdown requested")
	case runErr = <-m.errCh:
	}

	if err := m.Shutdown(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Errors returns asynchronous server errors.
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Addr 返回实际监听地址；未启动时返回配置地址
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.cfg.ListenAddr
}

// IsRunning 检查服务是否运行中
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listener != nil && !m.closed
}

// ShutdownTimeout 返回生效的关闭超时
func (m *Manager) ShutdownTimeout() time.Duration {
	return m.cfg.ShutdownTimeout
}
