package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	clts "whalewatch/clients"
	"whalewatch/config"
	"whalewatch/internal/app"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load config from .env and environment variables
	cfg := config.Load()
	if result := cfg.Validate(); !result.Valid {
		logger.Fatal("invalid configuration", zap.String("errors", result.Error()))
	}

	if data, err := cfg.ToJSON(); err == nil {
		logger.Info("starting insider monitor", zap.ByteString("config", data))
	}

	logger.Info("instantiating clients")
	clients, err := clts.NewClients(logger, cfg)
	if err != nil {
		logger.Fatal("failed to create clients", zap.Error(err))
	}
	defer clients.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, cfg)
	if err := runner.Run(ctx); err != nil {
		logger.Error("runner failed", zap.Error(err))
	}
	logger.Info("stopped")
}
