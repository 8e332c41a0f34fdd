// 配置加载器测试。
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().WithEnvPrefix("KIROKU_TEST_DEFAULTS").Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultBaseURL, cfg.Client.BaseURL)
	assert.Equal(t, 3, cfg.Client.MaxRetries)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "kiroku.yaml")

	yamlContent := `
client:
  api_key: "yaml-key"
  base_url: "http://localhost:4321/api/mcp"
  webhook_url: "http://localhost:4444/webhook"
  timeout: 30s
  max_retries: 5
  poll_interval: 2s
  wait_timeout: 10m

webhook:
  listen_addr: ":9000"

log:
  level: "debug"
  format: "console"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithEnvPrefix("KIROKU_TEST_YAML").WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "yaml-key", cfg.Client.APIKey)
	assert.Equal(t, "http://localhost:4321/api/mcp", cfg.Client.BaseURL)
	assert.Equal(t, "http://localhost:4444/webhook", cfg.Client.WebhookURL)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 5, cfg.Client.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Client.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Client.WaitTimeout)
	// 未出现在 YAML 中的字段保留默认值
	assert.Equal(t, time.Second, cfg.Client.RetryBaseDelay)
	assert.Equal(t, "/webhook", cfg.Webhook.Path)
	assert.Equal(t, ":9000", cfg.Webhook.ListenAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("KIROKU_CLIENT_API_KEY", "env-key")
	t.Setenv("KIROKU_CLIENT_MAX_RETRIES", "7")
	t.Setenv("KIROKU_CLIENT_TIMEOUT", "3s")
	t.Setenv("KIROKU_CLIENT_RATE_LIMIT", "2.5")
	t.Setenv("KIROKU_LOG_OUTPUT_PATHS", "stdout, /tmp/kiroku.log")
	t.Setenv("KIROKU_TELEMETRY_ENABLED", "true")
	t.Setenv("KIROKU_TELEMETRY_ENVIRONMENT", "staging")
	t.Setenv("KIROKU_TELEMETRY_INSECURE", "false")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Client.APIKey)
	assert.Equal(t, 7, cfg.Client.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 2.5, cfg.Client.RateLimit)
	assert.Equal(t, []string{"stdout", "/tmp/kiroku.log"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "staging", cfg.Telemetry.Environment)
	assert.False(t, cfg.Telemetry.Insecure)
}

func TestLoader_ShorthandEnv(t *testing.T) {
	t.Setenv("KIROKU_API_KEY", "short-key")
	t.Setenv("KIROKU_API_URL", "http://localhost:4321/api/mcp")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "short-key", cfg.Client.APIKey)
	assert.Equal(t, "http://localhost:4321/api/mcp", cfg.Client.BaseURL)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "kiroku.yaml")
	yamlContent := `
client:
  api_key: "yaml-key"
  max_retries: 1
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))
	t.Setenv("KIROKU_CLIENT_API_KEY", "env-key")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Client.APIKey)
	assert.Equal(t, 1, cfg.Client.MaxRetries)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithEnvPrefix("KIROKU_TEST_MISSING").
		WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).
		Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.Client.BaseURL)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("client: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("KIROKU_CLIENT_MAX_RETRIES", "many")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KIROKU_CLIENT_MAX_RETRIES")
}

func TestLoader_Validators(t *testing.T) {
	_, err := NewLoader().
		WithEnvPrefix("KIROKU_TEST_VALIDATOR").
		WithValidator(func(*Config) error { return errors.New("nope") }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is required")

	cfg.Client.APIKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.Client.BaseURL = "not a url"
	cfg.Client.PollInterval = 0
	cfg.Client.MaxRetries = -1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid base_url")
	assert.Contains(t, err.Error(), "poll_interval must be positive")
	assert.Contains(t, err.Error(), "max_retries must not be negative")
}

func TestMustLoad_Panics(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("client: [unclosed"), 0644))
	assert.Panics(t, func() { MustLoad(configPath) })
}
