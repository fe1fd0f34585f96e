// Command microdo runs the gateway and every backend service in a single
// process over the in-memory broker. It is meant for local development.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/JoaoG250/micro-do/common/config"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/messaging/memory"
	gateway "github.com/JoaoG250/micro-do/gateway/app"
	identity "github.com/JoaoG250/micro-do/identity/app"
	notifications "github.com/JoaoG250/micro-do/notifications/app"
	tasks "github.com/JoaoG250/micro-do/tasks/app"
)

type runner interface {
	Run(ctx context.Context) error
}

type factory func(ctx context.Context, cfg *config.Config, broker messaging.Client, logger *logging.Logger) (runner, error)

func adapt[A runner](fn func(context.Context, *config.Config, messaging.Client, *logging.Logger) (A, error)) factory {
	return func(ctx context.Context, cfg *config.Config, broker messaging.Client, logger *logging.Logger) (runner, error) {
		return fn(ctx, cfg, broker, logger)
	}
}

// Backends come first so their queues are consumed before the gateway
// starts calling them.
var services = []struct {
	name string
	new  factory
}{
	{config.ServiceIdentity, adapt(identity.New)},
	{config.ServiceTasks, adapt(tasks.New)},
	{config.ServiceNotifications, adapt(notifications.New)},
	{config.ServiceGateway, adapt(gateway.New)},
}

func main() {
	base, err := config.Load(config.ServiceGateway)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(logging.ParseLevel(base.Logging.Level), base.Logging.Format)
	logging.SetDefault(logger)

	broker := memory.NewClient(logger)
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, broker, logger); err != nil {
		slog.Error("micro-do stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("micro-do stopped gracefully")
}

func run(parent context.Context, broker messaging.Client, logger *logging.Logger) error {
	parent, cancel := context.WithCancel(parent)
	defer cancel()
	g, ctx := errgroup.WithContext(parent)

	fail := func(err error) error {
		cancel()
		_ = g.Wait()
		return err
	}

	for _, svc := range services {
		cfg, err := config.Load(svc.name)
		if err != nil {
			return fail(fmt.Errorf("%s config: %w", svc.name, err))
		}
		cfg.Broker.Driver = config.BrokerMemory
		// A port override in the environment is meant for the gateway.
		if svc.name != config.ServiceGateway {
			cfg.Server.Port = config.DefaultPort(svc.name)
		}

		svcLogger := logger.With(logging.Service(svc.name))
		app, err := svc.new(ctx, cfg, broker, svcLogger)
		if err != nil {
			return fail(fmt.Errorf("init %s: %w", svc.name, err))
		}

		svcLogger.Info("Starting service", slog.Int("port", cfg.Server.Port))
		g.Go(func() error {
			if err := app.Run(ctx); err != nil {
				return fmt.Errorf("%s: %w", svc.name, err)
			}
			return nil
		})
	}

	return g.Wait()
}
