// =============================================================================
// 📦 KirokuForms 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("kiroku.yaml").
//	    WithEnvPrefix("KIROKU").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是客户端的完整配置结构
type Config struct {
	// Client KirokuForms API 客户端配置
	Client ClientConfig `yaml:"client" env:"CLIENT"`

	// Webhook 回调接收端配置
	Webhook WebhookConfig `yaml:"webhook" env:"WEBHOOK"`

	// Watcher 待处理中断巡检配置
	Watcher WatcherConfig `yaml:"watcher" env:"WATCHER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ClientConfig API 客户端配置，构造后视为不可变
type ClientConfig struct {
	// API Key（Bearer Token）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// MCP API 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 默认回调地址，创建任务未指定 callback_url 时使用
	WebhookURL string `yaml:"webhook_url" env:"WEBHOOK_URL"`
	// Webhook 签名密钥
	WebhookSecret string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 传输失败最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 重试退避基数，第 n 次重试等待 base * 2^n
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" env:"RETRY_BASE_DELAY"`
	// 结果轮询间隔
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// 阻塞等待结果的默认超时
	WaitTimeout time.Duration `yaml:"wait_timeout" env:"WAIT_TIMEOUT"`
	// 每秒请求数上限（0 表示不限制）
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 限流突发容量
	RateBurst int `yaml:"rate_burst" env:"RATE_BURST"`
}

// WebhookConfig Webhook 接收端配置
type WebhookConfig struct {
	// 监听地址
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	// 回调路径
	Path string `yaml:"path" env:"PATH"`
	// TLS 证书与私钥，均为空时以明文 HTTP 监听
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// WatcherConfig 待处理中断巡检配置
type WatcherConfig struct {
	// 巡检间隔
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// 以明文 gRPC 连接采集端
	Insecure bool `yaml:"insecure" env:"INSECURE"`
	// 部署环境，写入 deployment.environment
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
	// 指标导出周期
	ExportInterval time.Duration `yaml:"export_interval" env:"EXPORT_INTERVAL"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 暴露路径（挂在 Webhook 服务上）
	Path string `yaml:"path" env:"PATH"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "KIROKU",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置。
// 另外兼容 <PREFIX>_API_KEY / <PREFIX>_API_URL 两个简写变量。
func (l *Loader) loadFromEnv(cfg *Config) error {
	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return err
	}
	if cfg.Client.APIKey == "" {
		cfg.Client.APIKey = os.Getenv(l.envPrefix + "_API_KEY")
	}
	if v := os.Getenv(l.envPrefix + "_API_URL"); v != "" && os.Getenv(l.envPrefix+"_CLIENT_BASE_URL") == "" {
		cfg.Client.BaseURL = v
	}
	return nil
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if err := c.Client.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Watcher.Interval <= 0 {
		errs = append(errs, "watcher interval must be positive")
	}
	if c.Telemetry.Enabled && (c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1) {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Validate 验证客户端配置
func (c *ClientConfig) Validate() error {
	var errs []string

	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, "api_key is required")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid base_url %q", c.BaseURL))
	}
	if c.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if c.MaxRetries < 0 {
		errs = append(errs, "max_retries must not be negative")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "poll_interval must be positive")
	}
	if c.WaitTimeout <= 0 {
		errs = append(errs, "wait_timeout must be positive")
	}
	if c.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
