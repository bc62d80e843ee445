package main

import (
	"context"
	"fmt"
	"log/slog"

	"pollbook/internal/ledger"
	"pollbook/internal/platform/config"
	"pollbook/internal/platform/database"
	redisclient "pollbook/internal/platform/redis"
)

// openLedger builds the configured backend and a health probe for it.
func openLedger(ctx context.Context, cfg config.Config, log *slog.Logger) (ledger.Store, func(context.Context) error, error) {
	switch cfg.Ledger.Backend {
	case config.BackendRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Info("ledger backend ready", "backend", cfg.Ledger.Backend)
		return ledger.NewRedis(client.Client), client.Health, nil

	case config.BackendPostgres:
		db, err := database.OpenPostgres(ctx, cfg.Ledger.DatabaseURL, cfg.Ledger.PostgresDriver)
		if err != nil {
			return nil, nil, err
		}
		store := ledger.NewPostgres(db)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("migrate postgres ledger: %w", err)
		}
		log.Info("ledger backend ready", "backend", cfg.Ledger.Backend, "driver", cfg.Ledger.PostgresDriver)
		return store, db.PingContext, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store := ledger.NewSQLite(db)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("migrate sqlite ledger: %w", err)
		}
		log.Info("ledger backend ready", "backend", cfg.Ledger.Backend, "path", cfg.Ledger.SQLitePath)
		return store, db.PingContext, nil

	default:
		log.Warn("using in-memory ledger; state is lost on restart")
		return ledger.NewInMemory(), nil, nil
	}
}
