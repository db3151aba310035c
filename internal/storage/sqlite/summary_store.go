package sqlite

import (
	"context"
	"fmt"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using SQLite.
type SummaryStore struct {
	db *DB
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(db *DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// ReplaceUnitStats atomically replaces all unit stats of a venue.
func (s *SummaryStore) ReplaceUnitStats(ctx context.Context, venue string, stats []*domain.UnitStat) error {
	if venue == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM unit_stats WHERE venue = ?`, venue); err != nil {
		return fmt.Errorf("clear unit stats: %w", err)
	}

	for _, st := range stats {
		if st == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO unit_stats (
				venue, unit_number, observations, hit_rate_10k, hit_rate_5k, avg_diff
			) VALUES (?, ?, ?, ?, ?, ?)
		`, venue, st.UnitNumber, st.Observations, st.HitRate10k, st.HitRate5k, st.AvgDiff)
		if err != nil {
			return fmt.Errorf("insert unit stat: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReplaceDailyStats atomically replaces all daily stats of a venue.
func (s *SummaryStore) ReplaceDailyStats(ctx context.Context, venue string, stats []*domain.DailyStat) error {
	if venue == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_stats WHERE venue = ?`, venue); err != nil {
		return fmt.Errorf("clear daily stats: %w", err)
	}

	for _, st := range stats {
		if st == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO daily_stats (
				venue, report_date, unit_count, total_diff, total_games, avg_diff, avg_games,
				payout_ratio, sticky_win_rate
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, venue, st.Date.ISO(), st.UnitCount, st.TotalDiff, st.TotalGames, st.AvgDiff, st.AvgGames,
			st.PayoutRatio, st.StickyWinRate)
		if err != nil {
			return fmt.Errorf("insert daily stat: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetUnitStats retrieves unit stats for a venue, ordered by unit_number ASC.
func (s *SummaryStore) GetUnitStats(ctx context.Context, venue string) ([]*domain.UnitStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT venue, unit_number, observations, hit_rate_10k, hit_rate_5k, avg_diff
		FROM unit_stats
		WHERE venue = ?
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT venue, report_date, unit_count, total_diff, total_games, avg_diff, avg_games,
			payout_ratio, sticky_win_rate
		FROM daily_stats
		WHERE venue = ?
		ORDER BY report_date ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("get daily stats: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyStat
	for rows.Next() {
		var st domain.DailyStat
		var raw string
		err := rows.Scan(&st.Venue, &raw, &st.UnitCount, &st.TotalDiff, &st.TotalGames,
			&st.AvgDiff, &st.AvgGames, &st.PayoutRatio, &st.StickyWinRate)
		if err != nil {
			return nil, fmt.Errorf("scan daily stat row: %w", err)
		}
		if st.Date, err = parseDate(raw); err != nil {
			return nil, err
		}
		result = append(result, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stat rows: %w", err)
	}
	return result, nil
}
