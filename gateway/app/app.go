// Package app assembles the HTTP gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JoaoG250/micro-do/common/bootstrap"
	"github.com/JoaoG250/micro-do/common/config"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/messaging"
	"github.com/JoaoG250/micro-do/common/middleware"
	"github.com/JoaoG250/micro-do/common/rpc"
	"github.com/JoaoG250/micro-do/common/tokens"
	"github.com/JoaoG250/micro-do/gateway/internal/auth"
	"github.com/JoaoG250/micro-do/gateway/internal/handlers"
	gwmiddleware "github.com/JoaoG250/micro-do/gateway/internal/middleware"
	"github.com/JoaoG250/micro-do/gateway/internal/ratelimit"
	"github.com/JoaoG250/micro-do/gateway/internal/realtime"
	"github.com/JoaoG250/micro-do/gateway/internal/relay"
	"github.com/JoaoG250/micro-do/gateway/internal/server"
)

type App struct {
	cfg      *config.Config
	client   *rpc.Client
	relay    *relay.NotificationRelay
	registry *realtime.Registry
	limiter  ratelimit.RateLimiter
	http     *http.Server
}

// New wires the gateway: REST handlers calling the backends over RPC, the
// realtime endpoint and the relay feeding it.
func New(ctx context.Context, cfg *config.Config, broker messaging.Client, logger *logging.Logger) (*App, error) {
	tokenService, err := tokens.New(tokens.Config{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	a := &App{
		cfg: cfg,
		client: rpc.NewClient(broker, rpc.ClientConfig{
			Service: config.ServiceGateway,
			Timeout: cfg.RPC.Timeout,
		}, logger),
		registry: realtime.NewRegistry(cfg.Realtime.MaxConnectionsPerUser),
		limiter:  newRateLimiter(ctx, cfg, logger),
	}
	a.relay = relay.NewNotificationRelay(broker, a.registry, logger)

	csrf, err := gwmiddleware.CSRF(gwmiddleware.CSRFConfig{
		TrustedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:         handlers.NewAuthHandler(a.client, tokenService, cfg.Auth.CookieSecure, logger),
		TaskHandler:         handlers.NewTaskHandler(a.client, logger),
		NotificationHandler: handlers.NewNotificationHandler(a.client, logger),
		AuthMiddleware:      auth.NewMiddleware(tokenService),
		Realtime: realtime.NewGateway(a.registry, tokenService, realtime.Config{
			DeferJoin:      cfg.Realtime.DeferJoin,
			JoinTimeout:    cfg.Realtime.JoinTimeout,
			PingInterval:   cfg.Realtime.PingInterval,
			WriteTimeout:   cfg.Realtime.WriteTimeout,
			SendBuffer:     cfg.Realtime.SendBuffer,
			AllowedOrigins: cfg.Realtime.AllowedOrigins,
		}, logger),
		Ops: bootstrap.OpsRouter(broker),
		Middleware: []func(http.Handler) http.Handler{
			middleware.CORS(middleware.CORSConfig{
				AllowedOrigins:   cfg.CORS.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           300,
			}),
			gwmiddleware.SecurityHeaders(gwmiddleware.SecurityConfig{CookieSecure: cfg.Auth.CookieSecure}),
			csrf,
			ratelimit.Middleware(a.limiter, logger),
		},
	})

	a.http = bootstrap.NewHTTPServer(cfg.Server, router)
	return a, nil
}

// newRateLimiter prefers Redis so limits hold across gateway replicas and
// falls back to a per-process window when Redis is off or unreachable.
func newRateLimiter(ctx context.Context, cfg *config.Config, logger *logging.Logger) ratelimit.RateLimiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return &ratelimit.NoOpRateLimiter{}
	}
	if cfg.Redis.Enabled {
		limiter, err := ratelimit.NewRedisRateLimiter(ctx, cfg.Redis.URL, rl.Requests, rl.Window)
		if err == nil {
			logger.Info("Rate limiting backed by Redis",
				slog.Int("requests", rl.Requests),
				slog.Duration("window", rl.Window),
			)
			return limiter
		}
		logger.Warn("Redis unavailable, using in-process rate limiter", logging.Error(err))
	}
	return ratelimit.NewMemoryRateLimiter(rl.Requests, rl.Window)
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.limiter.Close()

	if err := a.client.Start(); err != nil {
		return fmt.Errorf("start rpc client: %w", err)
	}
	defer a.client.Close()

	if err := a.relay.Start(); err != nil {
		return fmt.Errorf("start notification relay: %w", err)
	}
	slog.Info("Gateway listening",
		slog.String("addr", a.http.Addr),
		slog.String("reply_to", a.client.ReplyTo()),
	)

	err := bootstrap.Serve(ctx, a.http, a.cfg.Server.ShutdownTimeout)
	a.registry.Close()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, a.relay.Stop(stopCtx))
}

// Handler returns the gateway's HTTP handler.
func (a *App) Handler() http.Handler {
	return a.http.Handler
}
