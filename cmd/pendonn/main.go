// Command pendonn runs the autonomous wireless penetration-testing
// orchestrator end-to-end: passive scan, handshake capture, offline
// cracking, and LAN enumeration on key recovery. Grounded on the teacher's
// cmd/wmap/main.go entrypoint shape (structured logging setup, a
// signal.NotifyContext root context, config.Load(), then a single
// blocking Run call).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jobsdonn/PenDonn/internal/config"
	"github.com/jobsdonn/PenDonn/internal/core/services/orchestrator"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("PENDONN_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("pendonn: starting")

	cfg := config.Load()
	if cfg.Debug {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	orch, err := orchestrator.New(cfg, logger)
	if err != nil {
		logger.Error("pendonn: bootstrap failed", "error", err)
		os.Exit(1)
	}

	if err := orch.Run(ctx); err != nil {
		logger.Error("pendonn: run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("pendonn: stopped")
}
