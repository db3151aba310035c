package sqlite

import (
	"context"
	"fmt"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// DailyRollupStore implements storage.DailyRollupStore using SQLite.
type DailyRollupStore struct {
	db *DB
}

// NewDailyRollupStore creates a new DailyRollupStore.
func NewDailyRollupStore(db *DB) *DailyRollupStore {
	return &DailyRollupStore{db: db}
}

// Compile-time interface check.
var _ storage.DailyRollupStore = (*DailyRollupStore)(nil)

// Append adds a rollup. Returns ErrDuplicateKey if (venue, report_date) exists.
func (s *DailyRollupStore) Append(ctx context.Context, r *domain.DailyRollup) error {
	if r == nil || r.Venue == "" || r.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_rollups (
			venue, report_date, unit_count, total_diff, avg_diff, total_games, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.Venue, r.Date.ISO(), r.UnitCount, r.TotalDiff, r.AvgDiff, r.TotalGames, r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert daily rollup: %w", err)
	}
	return nil
}

// GetDates returns every ingested date for a venue, ordered ASC.
func (s *DailyRollupStore) GetDates(ctx context.Context, venue string) ([]domain.CalendarDate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_date FROM daily_rollups WHERE venue = ? ORDER BY report_date ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("get rollup dates: %w", err)
	}
	defer rows.Close()

	var dates []domain.CalendarDate
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan rollup date: %w", err)
		}
		d, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollup dates: %w", err)
	}
	return dates, nil
}

// GetByVenue retrieves all rollups for a venue, ordered by date ASC.
func (s *DailyRollupStore) GetByVenue(ctx context.Context, venue string) ([]*domain.DailyRollup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT venue, report_date, unit_count, total_diff, avg_diff, total_games, created_at
		FROM daily_rollups
		WHERE venue = ?
		ORDER BY report_date ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("get rollups by venue: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyRollup
	for rows.Next() {
		var r domain.DailyRollup
		var raw string
		if err := rows.Scan(&r.Venue, &raw, &r.UnitCount, &r.TotalDiff, &r.AvgDiff, &r.TotalGames, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rollup row: %w", err)
		}
		if r.Date, err = parseDate(raw); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollup rows: %w", err)
	}
	return result, nil
}
