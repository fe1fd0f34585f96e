// Package app assembles the tasks service.
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
	"github.com/JoaoG250/micro-do/tasks/internal/handlers"
	"github.com/JoaoG250/micro-do/tasks/internal/repository"
	"github.com/JoaoG250/micro-do/tasks/internal/service"
	"github.com/JoaoG250/micro-do/tasks/migrations"
)

type App struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	server *rpc.Server
	ops    *http.Server
}

// New wires the tasks service on top of broker. Events are published on the
// same broker.
func New(ctx context.Context, cfg *config.Config, broker messaging.Client, logger *logging.Logger) (*App, error) {
	a := &App{cfg: cfg}

	var repo repository.Repository
	switch cfg.Database.Type {
	case config.DatabasePostgres:
		pool, err := bootstrap.OpenPostgres(ctx, cfg.Database, migrations.FS, config.ServiceTasks)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		repo = repository.NewPostgresRepository(pool)
	default:
		logger.Warn("Using in-memory repository (development only)")
		repo = repository.NewInMemoryRepository()
	}

	events := rpc.NewEventPublisher(broker, logger)
	svc := service.NewTaskService(repo, events, logger)

	a.server = rpc.NewServer(broker, contracts.TaskPatterns, logger)
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

	if err := a.server.Start(); err != nil {
		return fmt.Errorf("start tasks rpc server: %w", err)
	}
	slog.Info("Tasks service consuming", slog.String("queue", contracts.TaskPatterns.Queue))

	err := bootstrap.Serve(ctx, a.ops, a.cfg.Server.ShutdownTimeout)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, a.server.Stop(stopCtx))
}
