// Package main provides the entry point for the hive API server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hivelabs/hive-server/internal/api"
	"github.com/hivelabs/hive-server/internal/notify"
	"github.com/hivelabs/hive-server/internal/shutdown"
	pgstore "github.com/hivelabs/hive-server/internal/store/postgres"
	"github.com/hivelabs/hive-server/pkg/config"
	"github.com/hivelabs/hive-server/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New(slog.LevelInfo, true)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	// Initialize database store
	storeCfg := pgstore.DefaultConfig(cfg.DatabaseDSN)
	store, err := pgstore.NewPostgresStore(storeCfg, log.WithComponent("store").Logger)
	if err != nil {
		log.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}

	// Pick the notifier: real SMTP when configured, logging fallback
	// otherwise.
	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP, log.WithComponent("notify").Logger)
		log.Info("SMTP notifier configured", "host", cfg.SMTP.Host)
	} else {
		notifier = notify.NewLogNotifier(log.WithComponent("notify").Logger)
		log.Warn("SMTP not configured, harvest notifications will be logged only")
	}

	// Create the API server
	server := api.NewServer(cfg, store, notifier, log.WithComponent("api"))

	// Coordinate graceful shutdown. The server is registered before the
	// store so in-flight requests still have a database while draining.
	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewFuncComponent("api", server.Shutdown))
	coordinator.Register(shutdown.NewCloserComponent("store", store))

	ctx := coordinator.Notify(context.Background())

	log.Info("starting API server",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
	)

	if err := server.Start(ctx); err != nil {
		log.WithError(err).Error("server error")
		coordinator.Shutdown()
		os.Exit(1)
	}

	coordinator.Shutdown()
	log.Info("server stopped")
}
