package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cleohq/cleo-api/internal/api"
	apimiddleware "github.com/cleohq/cleo-api/internal/api/middleware"
)

// setupRouter configures the route tree and middleware stack.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.authService)
	workspaceHandler := api.NewWorkspaceHandler(app.workspaceStore)
	taskHandler := api.NewTaskHandler(app.aiService)
	oauthHandler := api.NewOAuthHandler(app.oauthService)
	landingHandler := api.NewLandingHandler(app.submissionStore)
	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Cap concurrent in-flight requests; excess callers receive 503.
		r.Use(chimiddleware.Throttle(100))

		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/landing/submit", landingHandler.Submit)

		// Provider redirect target: the user arrives here from the
		// provider's consent screen without an Authorization header.
		r.Get("/oauth/{provider}/callback", oauthHandler.Callback)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/logout-all", authHandler.LogoutAll)
			r.Get("/landing/submissions", landingHandler.List)

			r.Post("/workspaces", workspaceHandler.Create)
			r.Get("/workspaces", workspaceHandler.List)
			r.Get("/workspaces/{id}", workspaceHandler.Get)
			r.Put("/workspaces/{id}", workspaceHandler.Update)
			r.Delete("/workspaces/{id}", workspaceHandler.Delete)
			r.Get("/workspaces/{id}/connections", oauthHandler.Connections)

			r.Get("/oauth/{provider}/connect", oauthHandler.Connect)

			r.Post("/ai/task", taskHandler.Create)
			r.Get("/ai/task/{id}", taskHandler.Get)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := app.db.PingContext(ctx); err != nil {
			app.logger.Error("health check database ping failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
