// =============================================================================
// KirokuForms 命令行入口
// =============================================================================
// 使用方法:
//
//	kiroku create --title "Review" --fields @fields.json --wait
//	kiroku verify --data '{"name":"Ada","age":36}'
//	kiroku result --id task-123 --wait --timeout 10m
//	kiroku list --status pending --limit 20
//	kiroku cancel --id task-123
//	kiroku watch --data '{"name":"Ada"}' --interval 30s
//	kiroku webhook --config config.yaml
//	kiroku version
// =============================================================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/kirokuforms/config"
	"github.com/BaSui01/kirokuforms/internal/metrics"
	"github.com/BaSui01/kirokuforms/internal/telemetry"
	"github.com/BaSui01/kirokuforms/kiroku"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// command 子命令实现，返回的错误由 run 打印
type command func(ctx context.Context, app *app, args []string) error

// run 分发子命令并返回进程退出码
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var cmd command
	switch args[0] {
	case "create":
		cmd = runCreate
	case "verify":
		cmd = runVerify
	case "result":
		cmd = runResult
	case "list":
		cmd = runList
	case "cancel":
		cmd = runCancel
	case "watch":
		cmd = runWatch
	case "webhook":
		cmd = runWebhook
	case "version":
		printVersion(stdout)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	a := &app{stdout: stdout, stderr: stderr, requestID: uuid.NewString()}
	err := cmd(kiroku.WithRequestID(ctx, a.requestID), a, args[1:])
	a.close()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// 🧩 公共装配
// =============================================================================

// app 子命令共享的运行时组件，由 setup 按需装配
type app struct {
	stdout io.Writer
	stderr io.Writer
	// requestID 本次调用的所有 API 请求共用
	requestID string

	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
	providers *telemetry.Providers
}

// setup 加载配置并初始化日志、遥测与指标
func (a *app) setup(configPath string) error {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	a.logger = initLogger(cfg.Log).With(zap.String("request_id", a.requestID))

	a.providers, err = telemetry.Init(cfg.Telemetry, a.logger,
		telemetry.WithServiceVersion(Version),
		telemetry.WithInstanceID(a.requestID),
	)
	if err != nil {
		a.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.collector = metrics.NewCollector(cfg.Metrics.Namespace, a.registry, a.logger)
	}
	return nil
}

// client 校验配置并创建 API 客户端
func (a *app) client() (*kiroku.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return kiroku.New(a.cfg.Client,
		kiroku.WithLogger(a.logger),
		kiroku.WithMetrics(a.collector),
		kiroku.WithTaskIDGenerator(kiroku.UUIDTaskID),
	)
}

func (a *app) close() {
	if a.providers != nil {
		if err := a.providers.Shutdown(context.Background()); err != nil && a.logger != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "kiroku %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `kiroku - KirokuForms human review client

Usage:
  kiroku <command> [options]

Commands:
  create    Create a review task from fields or a template
  verify    Create a verification task from JSON data
  result    Fetch or wait for a task result
  list      List tasks
  cancel    Cancel a pending task
  watch     Create a verification task and poll it on the watcher interval
  webhook   Serve the completion webhook receiver and /metrics
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)

Examples:
  kiroku create --title "Review" --fields @fields.json --wait
  kiroku verify --data '{"customer":"Ada","total":42.5}'
  kiroku result --id task-123 --wait --timeout 10m
  kiroku list --status pending
  kiroku watch --data '{"customer":"Ada"}' --interval 30s
  kiroku webhook --config /etc/kiroku/config.yaml`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		// stdout 留给命令输出
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
