package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news_webhook/internal/config"
	"news_webhook/internal/scheduler"
	"news_webhook/internal/service"
	"news_webhook/internal/source/newsapi"
	"news_webhook/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Initialize news API source
	source := newsapi.New(newsapi.Config{
		BaseURL:  cfg.API.BaseURL,
		Keys:     cfg.API.KeyPool(),
		Limit:    cfg.API.Limit,
		Language: cfg.API.Language,
		Timeout:  time.Duration(cfg.API.Timeout),
	}, logger)

	// Initialize webhook sink
	sink := webhook.New(webhook.Config{
		URL:              cfg.Webhook.URL,
		SourceTag:        cfg.Webhook.SourceTag,
		MaxTextLength:    cfg.Webhook.MaxTextLength,
		TruncationMarker: cfg.Webhook.TruncationMarker,
	}, logger)

	// Create dispatch service
	dispatchService := service.NewDispatchService(source, sink, logger, cfg.Poll)

	sched := scheduler.NewScheduler(dispatchService, time.Duration(cfg.Poll.Interval), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting news webhook forwarder",
		"interval", time.Duration(cfg.Poll.Interval),
		"send_on_startup", cfg.Poll.SendOnStartup,
		"keys", len(cfg.API.KeyPool()),
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
