// Package sqlite implements the stores on a local single-file database
// (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
	"hall-data-lab/internal/storage/migrations"
)

// DB wraps sql.DB for dependency injection.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database file and applies migrations.
// SQLite allows one writer at a time, so the pool is limited to one connection.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{DB: db}
	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	files, err := migrations.Load(migrations.SQLiteFS, "sqlite")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := d.ExecContext(ctx, f.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.Name, err)
		}
	}
	return nil
}

// NewStores returns every store backed by db.
func NewStores(db *DB) storage.Stores {
	return storage.Stores{
		Records: NewUnitRecordStore(db),
		Rollups: NewDailyRollupStore(db),
		Summary: NewSummaryStore(db),
		Reviews: NewReviewStore(db),
	}
}

// isDuplicateKeyError checks if error is a primary key or unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// parseDate reads a report_date column written by CalendarDate.ISO.
func parseDate(s string) (domain.CalendarDate, error) {
	return domain.ParseISODate(s)
}
