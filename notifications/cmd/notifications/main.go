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
	"github.com/JoaoG250/micro-do/notifications/app"
)

func main() {
	cfg, err := config.Load(config.ServiceNotifications)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := bootstrap.Logger(cfg)
	slog.Info("Starting Notifications service",
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

	notifications, err := app.New(ctx, cfg, broker, logger)
	if err != nil {
		slog.Error("Failed to initialize notifications service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := notifications.Run(ctx); err != nil {
		slog.Error("Notifications service stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Notifications service stopped gracefully")
}
