// Package api provides the HTTP API server for the hive service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hivelabs/hive-server/internal/access"
	"github.com/hivelabs/hive-server/internal/api/handlers"
	"github.com/hivelabs/hive-server/internal/api/health"
	"github.com/hivelabs/hive-server/internal/api/middleware"
	"github.com/hivelabs/hive-server/internal/harvest"
	"github.com/hivelabs/hive-server/internal/hive"
	"github.com/hivelabs/hive-server/internal/notify"
	"github.com/hivelabs/hive-server/internal/store"
	"github.com/hivelabs/hive-server/pkg/config"
	"github.com/hivelabs/hive-server/pkg/logger"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	config        *config.Config
	logger        *logger.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, notifier notify.Notifier, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		store:  st,
		config: cfg,
		logger: log,
	}

	s.healthChecker = health.NewChecker(st, Version)
	s.setupRouter(notifier)
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter(notifier notify.Notifier) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger.Logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", s.healthChecker.Handler())

	accessSvc := access.NewService(s.store, s.logger.Logger)
	hiveSvc := hive.NewService(s.store, accessSvc, s.logger.Logger)
	orchestrator := harvest.NewOrchestrator(s.store, accessSvc, notifier, s.config.SiteURL, s.logger.Logger)
	orchestrator.SetNotifyTimeout(s.config.NotifyTimeout)

	hivesHandler := handlers.NewHivesHandler(hiveSvc, accessSvc, s.config.SiteURL, s.logger)
	messagesHandler := handlers.NewMessagesHandler(hiveSvc, s.logger)
	subscribersHandler := handlers.NewSubscribersHandler(hiveSvc, s.logger)
	harvestHandler := handlers.NewHarvestHandler(orchestrator, s.logger)

	r.Route("/v1/hives", func(r chi.Router) {
		r.Post("/", hivesHandler.Create)
		r.Route("/{hiveID}", func(r chi.Router) {
			r.Get("/", hivesHandler.Get)
			r.Post("/access", hivesHandler.VerifyAccess)
			r.Get("/messages", messagesHandler.List)
			r.Post("/messages", messagesHandler.Submit)
			r.Post("/subscribers", subscribersHandler.Create)
			r.Post("/harvest", harvestHandler.Harvest)
		})
	})

	s.router = r
}

// Start begins serving HTTP requests and blocks until the context is
// cancelled or the server fails. Draining in-flight requests is left to
// Shutdown, which the shutdown coordinator invokes.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
