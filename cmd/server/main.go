// Command server runs the snippet-hub HTTP API.
//
// Configuration comes from the environment (and an optional .env file); see
// internal/config for the variables.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/snippet-hub/internal/config"
	"github.com/sakif/snippet-hub/internal/repository/sqlstore"
	"github.com/sakif/snippet-hub/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("loading config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger, err := cfg.NewLogger()
	if err != nil {
		slog.Error("configuring logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. DATABASE ===
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := sqlstore.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Error("opening database",
			slog.String("database", sqlstore.Redact(cfg.DatabaseURL)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("migrating database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("database ready",
		slog.String("database", sqlstore.Redact(cfg.DatabaseURL)),
		slog.String("dialect", db.Dialect().String()),
	)

	// === 4. SERVER ===
	srv, err := server.New(cfg, db, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}
}
