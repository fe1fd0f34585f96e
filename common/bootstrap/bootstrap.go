// Package bootstrap wires the shared infrastructure every micro-do binary
// needs: logging, the broker connection, the database pool and the ops
// HTTP endpoints.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoaoG250/micro-do/common/config"
	"github.com/JoaoG250/micro-do/common/database"
	"github.com/JoaoG250/micro-do/common/httputil"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/messaging/amqp"
	"github.com/JoaoG250/micro-do/common/messaging/memory"
	"github.com/JoaoG250/micro-do/common/messaging/nats"
	"github.com/JoaoG250/micro-do/common/metrics"
	"github.com/JoaoG250/micro-do/common/middleware"
)

// Logger builds the service logger from config and installs it as the slog default.
func Logger(cfg *config.Config) *logging.Logger {
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service(cfg.Service))
	logging.SetDefault(logger)
	return logger
}

// ConnectBroker opens the broker selected by cfg.Driver.
func ConnectBroker(cfg config.BrokerConfig, service string, logger *logging.Logger) (messaging.Client, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.Driver {
	case config.BrokerNATS:
		natsCfg := nats.DefaultConfig()
		natsCfg.URL = cfg.URL
		natsCfg.Name = "micro-do-" + service
		natsCfg.MaxReconnects = cfg.MaxReconnects
		if cfg.ReconnectWait > 0 {
			natsCfg.ReconnectWait = cfg.ReconnectWait
		}
		if cfg.ConnTimeout > 0 {
			natsCfg.Timeout = cfg.ConnTimeout
		}
		client, err := nats.NewClient(natsCfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BrokerAMQP:
		client, err := amqp.NewClient(amqp.Config{URL: cfg.URL, Durable: cfg.Durable}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BrokerMemory:
		logger.Warn("Using in-process broker; other services cannot reach this one")
		return memory.NewClient(logger), nil
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}

// OpenPostgres connects to the configured database and, when enabled,
// applies the service's embedded migrations.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig, migrations fs.FS, service string) (*pgxpool.Pool, error) {
	pg := cfg.Postgres
	slog.Info("Connecting to PostgreSQL",
		slog.String("host", pg.Host),
		slog.Int("port", pg.Port),
		slog.String("database", pg.Database),
	)

	if cfg.Migrate {
		slog.Info("Running database migrations")
		if err := database.Migrate(pg.DSN(), migrations, ".", service); err != nil {
			return nil, err
		}
	}

	pool, err := database.Connect(ctx, pg.DSN(), pg.MaxConns)
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to PostgreSQL")
	return pool, nil
}

// OpsRouter serves /healthz and /metrics for a backend service.
func OpsRouter(broker messaging.Client) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", HealthHandler(broker))
	return middleware.RequestID(mux)
}

// HealthHandler reports broker connectivity. It answers 503 when the
// broker is unreachable.
func HealthHandler(broker messaging.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := messaging.CheckClientHealth(ctx, broker)
		body := map[string]any{
			"status": "ok",
			"broker": status,
		}
		code := http.StatusOK
		if !status.Healthy() {
			body["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}

		httputil.WriteJSON(w, code, body)
	}
}

// NewHTTPServer builds an http.Server from the server config.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully
// within timeout.
func Serve(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server", slog.String("addr", srv.Addr))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
