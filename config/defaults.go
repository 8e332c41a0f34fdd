// =============================================================================
// 📦 KirokuForms 默认配置
// =============================================================================
package config

import "time"

// DefaultBaseURL KirokuForms MCP API 默认地址
const DefaultBaseURL = "https://api.kirokuforms.com/mcp"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Client:    DefaultClientConfig(),
		Webhook:   DefaultWebhookConfig(),
		Watcher:   DefaultWatcherConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        DefaultBaseURL,
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		PollInterval:   5 * time.Second,
		WaitTimeout:    time.Hour,
		RateLimit:      0,
		RateBurst:      1,
	}
}

// DefaultWebhookConfig 返回默认 Webhook 配置
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		ListenAddr:      ":4444",
		Path:            "/webhook",
		ShutdownTimeout: 10 * time.Second,
	}
}

// DefaultWatcherConfig 返回默认巡检配置
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Interval: 30 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        false,
		OTLPEndpoint:   "localhost:4317",
		ServiceName:    "kirokuforms",
		SampleRate:     0.1,
		Insecure:       true,
		ExportInterval: 30 * time.Second,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "kirokuforms",
		Path:      "/metrics",
	}
}
