package server

import (
	"net/http"

	"github.com/JoaoG250/micro-do/common/middleware"
	"github.com/JoaoG250/micro-do/gateway/internal/auth"
	"github.com/JoaoG250/micro-do/gateway/internal/handlers"
)

// RouterConfig holds dependencies needed to configure routes
type RouterConfig struct {
	AuthHandler         *handlers.AuthHandler
	TaskHandler         *handlers.TaskHandler
	NotificationHandler *handlers.NotificationHandler
	AuthMiddleware      *auth.Middleware

	// Realtime serves the websocket endpoint.
	Realtime http.Handler

	// Ops serves /healthz and /metrics.
	Ops http.Handler

	// Middleware wraps every route, outermost first, inside request id
	// assignment.
	Middleware []func(http.Handler) http.Handler
}

// NewRouter constructs a ServeMux with gateway routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	protect := func(h http.HandlerFunc) http.Handler {
		return cfg.AuthMiddleware.Protect(h)
	}

	// Auth endpoints
	mux.HandleFunc("POST /api/auth/register", cfg.AuthHandler.Register)
	mux.HandleFunc("POST /api/auth/login", cfg.AuthHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", cfg.AuthHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", cfg.AuthHandler.Logout)
	mux.Handle("GET /api/auth/profile", protect(cfg.AuthHandler.Profile))
	mux.Handle("GET /api/users", protect(cfg.AuthHandler.SearchUsers))

	// Tasks and comments
	mux.Handle("POST /api/tasks", protect(cfg.TaskHandler.Create))
	mux.Handle("GET /api/tasks", protect(cfg.TaskHandler.List))
	mux.Handle("GET /api/tasks/{id}", protect(cfg.TaskHandler.Get))
	mux.Handle("PUT /api/tasks/{id}", protect(cfg.TaskHandler.Update))
	mux.Handle("DELETE /api/tasks/{id}", protect(cfg.TaskHandler.Delete))
	mux.Handle("POST /api/tasks/{id}/comments", protect(cfg.TaskHandler.CreateComment))
	mux.Handle("GET /api/tasks/{id}/comments", protect(cfg.TaskHandler.ListComments))

	// Notification inbox
	mux.Handle("GET /api/notifications", protect(cfg.NotificationHandler.List))
	mux.Handle("POST /api/notifications/{id}/read", protect(cfg.NotificationHandler.MarkRead))

	// Realtime authenticates during the handshake, not here.
	if cfg.Realtime != nil {
		mux.Handle("GET /ws", cfg.Realtime)
	}

	if cfg.Ops != nil {
		mux.Handle("GET /healthz", cfg.Ops)
		mux.Handle("GET /metrics", cfg.Ops)
	}

	mws := append([]func(http.Handler) http.Handler{middleware.RequestID}, cfg.Middleware...)
	return middleware.Chain(mux, mws...)
}
