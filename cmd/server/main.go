package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shahil0511/OakMirror/internal/app"
	"github.com/Shahil0511/OakMirror/internal/config"
	"github.com/Shahil0511/OakMirror/pkg/logger"
)

func main() {
	// Load configuration from environment variables. A missing or short
	// JWT_SECRET stops the process here.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	format := logger.FormatJSON
	if cfg.IsDevelopment() {
		format = logger.FormatText
	}
	log := logger.NewWithWriter("oakmirror", cfg.LogLevel, format, os.Stdout)
	slog.SetDefault(log)
	log.Info("starting oakmirror",
		slog.String("environment", cfg.Environment),
		slog.String("version", cfg.Version),
		slog.Int("http_port", cfg.HTTPPort),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("oakmirror stopped")
}
