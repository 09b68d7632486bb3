package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/api"
	apiMiddleware "github.com/RajendraPrasadR/AI-Agent-Backend/internal/api/middleware"
)

// healthCheckTimeout bounds backend pings so a hung dependency cannot stall
// the probe.
const healthCheckTimeout = 2 * time.Second

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	// Create a router
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for improved error handling

	// Create API handlers using the application's services
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	eventsHandler := api.NewEventsHandler(app.broadcaster, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Task submission and status endpoints
		r.Post("/tasks", taskHandler.SubmitTask)
		r.Get("/tasks/{id}", taskHandler.GetTaskStatus)
		r.Get("/task-types", taskHandler.ListTaskTypes)

		// Live task event stream (websocket)
		r.Get("/tasks/{id}/events", eventsHandler.StreamTaskEvents)
	})

	// Health check endpoint
	r.Get("/health", app.handleHealth)

	return r
}

// handleHealth reports whether the process and its backing connections are
// usable. Backends left unconfigured (in-memory mode) are skipped.
func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if app.db != nil {
		if err := app.db.PingContext(ctx); err != nil {
			app.logger.Error("Health check failed: database unreachable", "error", err)
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
	}

	if app.redisClient != nil {
		if err := app.redisClient.Ping(ctx).Err(); err != nil {
			app.logger.Error("Health check failed: redis unreachable", "error", err)
			http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		app.logger.Error("Failed to write health check response", "error", err)
	}
}
