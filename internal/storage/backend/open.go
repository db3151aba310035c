// Package backend opens the configured storage backend.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log"

	"hall-data-lab/internal/config"
	"hall-data-lab/internal/storage"
	"hall-data-lab/internal/storage/clickhouse"
	"hall-data-lab/internal/storage/memory"
	"hall-data-lab/internal/storage/postgres"
	"hall-data-lab/internal/storage/sqlite"
)

// CloseFunc releases the connections held by opened stores.
type CloseFunc func() error

// Open returns the stores selected by cfg, with schemas migrated.
// A configured ClickHouse DSN routes unit records and summaries to ClickHouse,
// while rollups and review items stay on the primary backend.
func Open(ctx context.Context, cfg config.StoreConfig, logger *log.Logger) (storage.Stores, CloseFunc, error) {
	if logger == nil {
		logger = log.Default()
	}

	var (
		stores  storage.Stores
		closers []func() error
	)

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Println("Using in-memory storage")
		stores = memory.NewStores()

	case config.BackendSQLite:
		logger.Printf("Opening SQLite database %s", cfg.SQLitePath)
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage.Stores{}, nil, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, db.Close)
		stores = sqlite.NewStores(db)

	case config.BackendPostgres:
		logger.Println("Connecting to PostgreSQL...")
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return storage.Stores{}, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, func() error { pool.Close(); return nil })
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return storage.Stores{}, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		stores = postgres.NewStores(pool)

	default:
		return storage.Stores{}, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.ClickHouseDSN != "" {
		logger.Println("Connecting to ClickHouse...")
		conn, err := clickhouse.Migrate(ctx, cfg.ClickHouseDSN)
		if err != nil {
			closeAll(closers)
			return storage.Stores{}, nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		closers = append(closers, conn.Close)
		stores.Records = clickhouse.NewUnitRecordStore(conn)
		stores.Summary = clickhouse.NewSummaryStore(conn)
	}

	return stores, func() error { return closeAll(closers) }, nil
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
