package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/server"
	"github.com/meltforce/liftlog/internal/storage"
)

var migrationsPath string

// openDB runs pending migrations and connects to PostgreSQL.
func openDB(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage.DB, error) {
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, migrationsPath); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	log.Info("migrations applied")

	db, err := storage.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	log.Info("database connected")
	return db, nil
}

// openStore returns the in-memory store when memory is set and PostgreSQL
// otherwise. The returned func releases the store.
func openStore(ctx context.Context, cfg *config.Config, memory bool, log *slog.Logger) (server.Store, func(), error) {
	if memory {
		log.Warn("using in-memory storage, data is lost on exit")
		return storage.NewMemory(), func() {}, nil
	}
	db, err := openDB(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}
