package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/pixelforge/internal/api"
	apiMiddleware "github.com/phrazzld/pixelforge/internal/api/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (a *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(a.logger))

	authHandler := api.NewAuthHandler(a.authenticator, a.jwtService, a.tokenLifetime())
	authMiddleware := apiMiddleware.NewAuthMiddleware(a.jwtService)
	taskHandler := api.NewTaskHandler(a.tasks, a.logger)
	libraryHandler := api.NewLibraryHandler(a.components.Elements)
	promptsHandler := api.NewPromptsHandler(a.components.Prompts)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/login", authHandler.Login)
		r.Get("/status", taskHandler.Stats)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/tasks", taskHandler.Create)
			r.Get("/tasks/status", taskHandler.Stats)
			r.Get("/tasks/{id}", taskHandler.Get)
			r.Get("/tasks/{id}/result", taskHandler.Result)
			r.Get("/tasks/{id}/svg", taskHandler.SVG)
			r.Get("/tasks/{id}/raster", taskHandler.Raster)

			r.Get("/library", libraryHandler.List)
			r.Post("/library", libraryHandler.Add)

			r.Get("/prompts", promptsHandler.List)
			r.Get("/prompts/{name}", promptsHandler.Get)
			r.Put("/prompts/{name}", promptsHandler.Update)

			if a.params != nil {
				paramsHandler := api.NewParamsHandler(a.config, a.params)
				r.Get("/generation-params", paramsHandler.Get)
				r.Put("/generation-params", paramsHandler.Update)
			}
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			a.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
