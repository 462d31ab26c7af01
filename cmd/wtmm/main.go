package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/eanyanwu/whotookmy.money/internal/banks"
	"github.com/eanyanwu/whotookmy.money/internal/config"
	"github.com/eanyanwu/whotookmy.money/internal/core"
	"github.com/eanyanwu/whotookmy.money/internal/events"
	apphttp "github.com/eanyanwu/whotookmy.money/internal/http"
	"github.com/eanyanwu/whotookmy.money/internal/log"
	"github.com/eanyanwu/whotookmy.money/internal/report"
	"github.com/eanyanwu/whotookmy.money/internal/storage"
)

func main() {
	// Load .env for local development; in production the environment is
	// already set.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DBPath, log.ForComponent(logger, "storage"))
	if err != nil {
		logger.Error("failed to open ledger store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Event publishing is optional; without AMQP the ledger still works.
	var publisher core.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange)
		}
	}

	router := core.NewRouter(store, banks.Parser{}, publisher, nil,
		log.ForComponent(logger, "router"), cfg.EmailDomain)
	aggregator := report.NewAggregator(store)

	srv := apphttp.NewServer(":"+cfg.Port, router, store, store, aggregator, publisher,
		log.ForComponent(logger, "http"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting wtmm server", "port", cfg.Port, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
