package postgres

import (
	"context"
	"fmt"
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
// Replacements run in a transaction so readers never see a half-written table.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// ReplaceUnitStats atomically replaces all unit stats of a venue.
func (s *SummaryStore) ReplaceUnitStats(ctx context.Context, venue string, stats []*domain.UnitStat) error {
	if venue == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM unit_stats WHERE venue = $1`, venue); err != nil {
		return fmt.Errorf("clear unit stats: %w", err)
	}

	query := `
		INSERT INTO unit_stats (
			venue, unit_number, observations, hit_rate_10k, hit_rate_5k, avg_diff
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, st := range stats {
		if st == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			venue,
			st.UnitNumber,
			st.Observations,
			st.HitRate10k,
			st.HitRate5k,
			st.AvgDiff,
		)
		if err != nil {
			return fmt.Errorf("insert unit stat: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReplaceDailyStats atomically replaces all daily stats of a venue.
func (s *SummaryStore) ReplaceDailyStats(ctx context.Context, venue string, stats []*domain.DailyStat) error {
	if venue == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM daily_stats WHERE venue = $1`, venue); err != nil {
		return fmt.Errorf("clear daily stats: %w", err)
	}

	query := `
		INSERT INTO daily_stats (
			venue, report_date, unit_count, total_diff, total_games, avg_diff, avg_games,
			payout_ratio, sticky_win_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, st := range stats {
		if st == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			venue,
			st.Date.Time(),
			st.UnitCount,
			st.TotalDiff,
			st.TotalGames,
			st.AvgDiff,
			st.AvgGames,
			st.PayoutRatio,
			st.StickyWinRate,
		)
		if err != nil {
			return fmt.Errorf("insert daily stat: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetUnitStats retrieves unit stats for a venue, ordered by unit_number ASC.
func (s *SummaryStore) GetUnitStats(ctx context.Context, venue string) ([]*domain.UnitStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT venue, unit_number, observations, hit_rate_10k, hit_rate_5k, avg_diff
		FROM unit_stats
		WHERE venue = $1
		ORDER BY unit_number ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("get unit stats: %w", err)
	}
	defer rows.Close()

	var result []*domain.UnitStat
	for rows.Next() {
		var st domain.UnitStat
		if err := rows.Scan(&st.Venue, &st.UnitNumber, &st.Observations, &st.HitRate10k, &st.HitRate5k, &st.AvgDiff); err != nil {
			return nil, fmt.Errorf("scan unit stat row: %w", err)
		}
		result = append(result, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit stat rows: %w", err)
	}
	return result, nil
}

// GetDailyStats retrieves daily stats for a venue, ordered by date ASC.
func (s *SummaryStore) GetDailyStats(ctx context.Context, venue string) ([]*domain.DailyStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT venue, report_date, unit_count, total_diff, total_games, avg_diff, avg_games,
			payout_ratio, sticky_win_rate
		FROM daily_stats
		WHERE venue = $1
		ORDER BY report_date ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("get daily stats: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyStat
	for rows.Next() {
		var st domain.DailyStat
		var date time.Time
		err := rows.Scan(
			&st.Venue,
			&date,
			&st.UnitCount,
			&st.TotalDiff,
			&st.TotalGames,
			&st.AvgDiff,
			&st.AvgGames,
			&st.PayoutRatio,
			&st.StickyWinRate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily stat row: %w", err)
		}
		st.Date = domain.DateFromTime(date)
		result = append(result, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stat rows: %w", err)
	}
	return result, nil
}
