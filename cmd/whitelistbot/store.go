package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/store"
	"tysmp/whitelist/internal/store/badger"
	"tysmp/whitelist/internal/store/postgres"
)

// openStore opens the configured backend. A store that cannot be opened is
// fatal to every command.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		backend, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseConns)
		if err != nil {
			return nil, errors.Annotate(err, "connecting to postgres")
		}
		return store.New(backend), nil
	default:
		backend, err := badger.New(
			badger.WithDataDir(filepath.Join(cfg.DataDir, "db")),
			badger.WithLogger(logger),
		)
		if err != nil {
			return nil, errors.Annotatef(err, "opening badger store in %s", cfg.DataDir)
		}
		return store.New(backend), nil
	}
}
