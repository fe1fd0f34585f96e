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
	"github.com/JoaoG250/micro-do/gateway/app"
)

func main() {
	cfg, err := config.Load(config.ServiceGateway)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := bootstrap.Logger(cfg)
	slog.Info("Starting API gateway",
		slog.Int("port", cfg.Server.Port),
		slog.String("broker", cfg.Broker.Driver),
		slog.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	broker, err := bootstrap.ConnectBroker(cfg.Broker, cfg.Service, logger)
	if err != nil {
		slog.Error("Failed to connect to broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := app.New(ctx, cfg, broker, logger)
	if err != nil {
		slog.Error("Failed to initialize gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := gateway.Run(ctx); err != nil {
		slog.Error("Gateway stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Gateway stopped gracefully")
}
