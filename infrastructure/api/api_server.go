// Package api provides the HTTP server for the quote API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/smarthealth/quotekit"
	apimiddleware "github.com/smarthealth/quotekit/infrastructure/api/middleware"
	v1 "github.com/smarthealth/quotekit/infrastructure/api/v1"
)

// APIServer provides an HTTP API backed by a quotekit Client.
type APIServer struct {
	client     *quotekit.Client
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given Client.
func NewAPIServer(client *quotekit.Client) *APIServer {
	return &APIServer{
		client: client,
		logger: client.Logger(),
	}
}

// mountRoutes wires up all routes on the given router.
func (a *APIServer) mountRoutes(router chi.Router) {
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	router.Use(apimiddleware.Logging(a.logger))

	router.Get("/health", a.health)
	router.Get("/healthz", a.health)

	quoteRouter := v1.NewQuoteRouter(a.client)
	statusRouter := v1.NewStatusRouter(a.client)
	quotesRouter := v1.NewQuotesRouter(a.client)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Mount("/quote", quoteRouter.Routes())
		r.Mount("/index", statusRouter.Routes())
		r.Mount("/quotes", quotesRouter.Routes())
	})
}

func (a *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until Shutdown is called or the listener fails.
func (a *APIServer) ListenAndServe(addr string) error {
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	a.logger.Info("quote API listening", "addr", addr)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve quote api: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}

	a.logger.Info("shutting down quote API")
	return a.httpServer.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom
// servers and tests.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.router = chi.NewRouter()
		a.router.Use(chimiddleware.RequestID)
		a.router.Use(chimiddleware.RealIP)
		a.router.Use(chimiddleware.Recoverer)
		a.mountRoutes(a.router)
	}
	return a.router
}
