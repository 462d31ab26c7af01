package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/eanyanwu/whotookmy.money/internal/config"
	"github.com/eanyanwu/whotookmy.money/internal/log"
	"github.com/eanyanwu/whotookmy.money/internal/outbox"
	"github.com/eanyanwu/whotookmy.money/internal/postmark"
	"github.com/eanyanwu/whotookmy.money/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.PostmarkToken == "" {
		logger.Error("POSTMARK_TOKEN is required for the courier")
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DBPath, log.ForComponent(logger, "storage"))
	if err != nil {
		logger.Error("failed to open ledger store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer store.Close()

	sender := postmark.NewClient(cfg.PostmarkToken)
	worker := outbox.NewWorker(store, sender, cfg.OutboxPollInterval,
		log.ForComponent(logger, "outbox"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting courier", "poll_interval", cfg.OutboxPollInterval.String())
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("courier stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("courier stopped gracefully")
}
