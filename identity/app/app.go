// Package app assembles the identity service from config so it can run as
// its own binary or inside the all-in-one development binary.
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
	"github.com/JoaoG250/micro-do/identity/internal/handlers"
	"github.com/JoaoG250/micro-do/identity/internal/repository"
	"github.com/JoaoG250/micro-do/identity/internal/service"
	"github.com/JoaoG250/micro-do/identity/migrations"
)

// App is a wired identity service.
type App struct {
	cfg    *config.Config
	logger *logging.Logger
	pool   *pgxpool.Pool
	server *rpc.Server
	ops    *http.Server
}

// New builds the identity service on top of broker.
func New(ctx context.Context, cfg *config.Config, broker messaging.Client, logger *logging.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	var repo repository.Repository
	if cfg.Database.Type == config.DatabasePostgres {
		pool, err := bootstrap.OpenPostgres(ctx, cfg.Database, migrations.FS, config.ServiceIdentity)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		repo = repository.NewPostgresRepository(pool)
	} else {
		logger.Warn("Using in-memory repository (development only)")
		repo = repository.NewInMemoryRepository()
	}

	svc := service.NewIdentityService(repo, cfg.Auth.BcryptCost, logger)

	a.server = rpc.NewServer(broker, contracts.IdentityPatterns, logger)
	handlers.Register(a.server, svc)

	a.ops = bootstrap.NewHTTPServer(cfg.Server, bootstrap.OpsRouter(broker))
	return a, nil
}

// Run serves RPC requests and the ops endpoints until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.server.Start(); err != nil {
		a.closePool()
		return fmt.Errorf("start identity rpc server: %w", err)
	}
	slog.Info("Identity service consuming", slog.String("queue", contracts.IdentityPatterns.Queue))

	err := bootstrap.Serve(ctx, a.ops, a.cfg.Server.ShutdownTimeout)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	stopErr := a.server.Stop(stopCtx)
	a.closePool()
	return errors.Join(err, stopErr)
}

func (a *App) closePool() {
	if a.pool != nil {
		a.pool.Close()
	}
}
