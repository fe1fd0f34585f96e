package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JoaoG250/micro-do/common/bootstrap"
	"github.com/JoaoG250/micro-do/common/config"
	"github.com/JoaoG250/micro-do/identity/app"
)

func main() {
	cfg, err := config.Load(config.ServiceIdentity)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := bootstrap.Logger(cfg)
	slog.Info("Starting Identity service",
		slog.Int("port", cfg.Server.Port),
		slog.String("broker", cfg.Broker.Driver),
		slog.String("database", cfg.Database.Type),
	)

	broker, err := bootstrap.ConnectBroker(cfg.Broker, cfg.Service, logger)
	if err != nil {
		slog.Error("Failed to connect to broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	identity, err := app.New(ctx, cfg, broker, logger)
	if err != nil {
		slog.Error("Failed to initialize identity service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := identity.Run(ctx); err != nil {
		slog.Error("Identity service stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Identity service stopped gracefully")
}
