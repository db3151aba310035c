package postgres

import (
	"context"
	"fmt"
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// DailyRollupStore implements storage.DailyRollupStore using PostgreSQL.
type DailyRollupStore struct {
	pool *Pool
}

// NewDailyRollupStore creates a new DailyRollupStore.
func NewDailyRollupStore(pool *Pool) *DailyRollupStore {
	return &DailyRollupStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyRollupStore = (*DailyRollupStore)(nil)

// Append adds a rollup. Returns ErrDuplicateKey if (venue, report_date) exists.
func (s *DailyRollupStore) Append(ctx context.Context, r *domain.DailyRollup) error {
	if r == nil || r.Venue == "" || r.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO daily_rollups (
			venue, report_date, unit_count, total_diff, avg_diff, total_games, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		r.Venue,
		r.Date.Time(),
		r.UnitCount,
		r.TotalDiff,
		r.AvgDiff,
		r.TotalGames,
		r.CreatedAt,
	)
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
	rows, err := s.pool.Query(ctx, `
		SELECT report_date FROM daily_rollups WHERE venue = $1 ORDER BY report_date ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("get rollup dates: %w", err)
	}
	defer rows.Close()

	var dates []domain.CalendarDate
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan rollup date: %w", err)
		}
		dates = append(dates, domain.DateFromTime(t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollup dates: %w", err)
	}

	return dates, nil
}

// GetByVenue retrieves all rollups for a venue, ordered by date ASC.
func (s *DailyRollupStore) GetByVenue(ctx context.Context, venue string) ([]*domain.DailyRollup, error) {
	query := `
		SELECT venue, report_date, unit_count, total_diff, avg_diff, total_games, created_at
		FROM daily_rollups
		WHERE venue = $1
		ORDER BY report_date ASC
	`

	rows, err := s.pool.Query(ctx, query, venue)
	if err != nil {
		return nil, fmt.Errorf("get rollups by venue: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyRollup
	for rows.Next() {
		var r domain.DailyRollup
		var date time.Time
		if err := rows.Scan(&r.Venue, &date, &r.UnitCount, &r.TotalDiff, &r.AvgDiff, &r.TotalGames, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rollup row: %w", err)
		}
		r.Date = domain.DateFromTime(date)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollup rows: %w", err)
	}

	return result, nil
}
