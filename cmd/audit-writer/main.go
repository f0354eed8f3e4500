package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/finportal/internal/app/auditwriter"
	"github.com/magabrotheeeer/finportal/internal/config"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: sl.LevelFor(cfg.Env)}))

	if cfg.RabbitMQ.URL == "" {
		logger.Error("rabbitmq.url is required for the audit writer")
		os.Exit(1)
	}
	logger.Info("starting audit-writer", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := auditwriter.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize audit-writer", sl.Err(err))
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("audit-writer stopped with error", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("audit-writer stopped gracefully")
}
