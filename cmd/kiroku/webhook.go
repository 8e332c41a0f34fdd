package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/kirokuforms/internal/server"
	"github.com/BaSui01/kirokuforms/webhook"
)

// =============================================================================
// 📨 webhook 命令
// =============================================================================

func runWebhook(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("webhook", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	configPath := fs.String("config", "", "Path to config file")
	addr := fs.String("addr", "", "Listen address (overrides webhook.listen_addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.setup(*configPath); err != nil {
		return err
	}
	if *addr != "" {
		a.cfg.Webhook.ListenAddr = *addr
	}

	handler := a.webhookHandler()
	a.logger.Info("Starting kiroku webhook receiver",
		zap.String("version", Version),
		zap.String("path", a.cfg.Webhook.Path),
		zap.Bool("signed", a.cfg.Client.WebhookSecret != ""),
	)

	return server.NewManager(handler, a.cfg.Webhook, a.logger).Run(ctx)
}

// webhookHandler 组装回调、指标与健康检查路由
func (a *app) webhookHandler() http.Handler {
	if a.cfg.Client.WebhookSecret == "" {
		a.logger.Warn("webhook_secret not set, accepting unsigned deliveries")
	}

	receiver := webhook.NewReceiver(a.cfg.Client.WebhookSecret,
		webhook.WithLogger(a.logger),
		webhook.WithMetrics(a.collector),
	)
	receiver.OnEvent(func(_ context.Context, ev webhook.Event) {
		a.logger.Info("task event",
			zap.String("event", ev.EventType),
			zap.String("task_id", ev.TaskID),
			zap.String("status", string(ev.Data.Status)),
			zap.Int("form_fields", len(ev.Data.FormData)),
		)
	})

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Webhook.Path, receiver)
	if a.registry != nil {
		mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
