package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"newscrawl/internal/coordinator"
)

func main() {
	logger := initLogger()

	cfg, err := coordinator.LoadConfigFromEnv()
	if err != nil {
		logger.Error("coordinatord: config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	srv := coordinator.NewServer(*cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("coordinatord: starting", slog.String("addr", cfg.ListenAddr))
	if err := srv.Run(ctx); err != nil {
		logger.Error("coordinatord: exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("coordinatord: stopped")
}

// initLogger mirrors cmd/api's LOG_LEVEL-keyed JSON logger.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
