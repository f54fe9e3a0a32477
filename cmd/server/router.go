package main

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/modelapi/internal/api"
	apiMiddleware "github.com/phrazzld/modelapi/internal/api/middleware"
	"github.com/phrazzld/modelapi/internal/redact"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	if app.config.Server.WriteTimeout > time.Second {
		r.Use(middleware.Timeout(app.config.Server.WriteTimeout - 100*time.Millisecond))
	}

	var protect func(http.Handler) http.Handler
	if app.jwtService != nil {
		protect = apiMiddleware.NewAuthMiddleware(app.jwtService).Authenticate
	}

	basePath := "/" + strings.Trim(app.config.Server.BasePath, "/")
	resources := api.NewResourceHandler(app.factory, app.logger)

	r.Route(basePath, func(r chi.Router) {
		if app.jwtService != nil {
			lifetime := time.Duration(app.config.Auth.TokenLifetimeMinutes) * time.Minute
			r.Post("/auth/token", api.NewAuthHandler(app.factory, app.jwtService, lifetime).Token)
		}
		resources.Routes(r, protect)
	})

	r.Get("/openapi.json", api.OpenAPIHandler(app.factory, basePath))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := app.db.PingContext(r.Context()); err != nil {
			app.logger.Error("health check failed", slog.String("error", redact.Error(err)))
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
