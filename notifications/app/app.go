// Package app assembles the notifications service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoaoG250/micro-do/common/bootstrap"
	"github.com/JoaoG250/micro-do/common/config"
	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/notifications/internal/handlers"
	"github.com/JoaoG250/micro-do/notifications/internal/repository"
	"github.com/JoaoG250/micro-do/notifications/internal/service"
	"github.com/JoaoG250/micro-do/notifications/migrations"
)

type App struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	client *rpc.Client
	server *rpc.Server
	ops    *http.Server
}

// New wires the notifications service. It calls the tasks service through
// an RPC client on the same broker.
func New(ctx context.Context, cfg *config.Config, broker messaging.Client, logger *logging.Logger) (*App, error) {
	a := &App{cfg: cfg}

	var repo repository.Repository
	if cfg.Database.Type == config.DatabasePostgres {
		pool, err := bootstrap.OpenPostgres(ctx, cfg.Database, migrations.FS, config.ServiceNotifications)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		repo = repository.NewPostgresRepository(pool)
	} else {
		logger.Warn("Using in-memory repository (development only)")
		repo = repository.NewInMemoryRepository()
	}

	a.client = rpc.NewClient(broker, rpc.ClientConfig{
		Service: config.ServiceNotifications,
		Timeout: cfg.RPC.Timeout,
	}, logger)

	svc := service.NewNotificationService(repo, a.client, rpc.NewEventPublisher(broker, logger), logger)
	a.server = rpc.NewServer(broker, contracts.NotificationPatterns, logger)
	handlers.Register(a.server, svc)

	a.ops = bootstrap.NewHTTPServer(cfg.Server, bootstrap.OpsRouter(broker))
	return a, nil
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()

	if err := a.client.Start(); err != nil {
		return fmt.Errorf("start rpc client: %w", err)
	}
	defer a.client.Close()

	if err := a.server.Start(); err != nil {
		return fmt.Errorf("start notifications rpc server: %w", err)
	}
	slog.Info("Notifications service consuming",
		slog.String("queue", contracts.NotificationPatterns.Queue),
		slog.String("reply_to", a.client.ReplyTo()),
	)

	err := bootstrap.Serve(ctx, a.ops, a.cfg.Server.ShutdownTimeout)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, a.server.Stop(stopCtx))
}
