package clickhouse

import (
	"context"
	"fmt"
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

const (
	kindUnit  = "unit"
	kindDaily = "daily"
)

// SummaryStore implements storage.SummaryStore using ClickHouse.
//
// ClickHouse has no transactional DELETE+INSERT, so each replace writes a new
// generation of rows and then publishes it in summary_generations. Readers only
// see the published generation; older ones are removed by an async mutation.
type SummaryStore struct {
	conn *Conn
	now  func() time.Time
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(conn *Conn) *SummaryStore {
	return &SummaryStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// ReplaceUnitStats replaces all unit stats of a venue.
func (s *SummaryStore) ReplaceUnitStats(ctx context.Context, venue string, stats []*domain.UnitStat) error {
	if venue == "" {
		return storage.ErrInvalidInput
	}
	gen := s.now().UnixNano()

	if len(stats) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `
			INSERT INTO unit_stats (
				venue, generation, unit_number, observations, hit_rate_10k, hit_rate_5k, avg_diff
			)
		`)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}
		for _, st := range stats {
			if st == nil {
				_ = batch.Abort()
				return storage.ErrInvalidInput
			}
			err := batch.Append(
				venue,
				gen,
				int32(st.UnitNumber),
				uint32(st.Observations),
				st.HitRate10k,
				st.HitRate5k,
				st.AvgDiff,
			)
			if err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send batch: %w", err)
		}
	}

	return s.publish(ctx, venue, kindUnit, "unit_stats", gen)
}

// ReplaceDailyStats replaces all daily stats of a venue.
func (s *SummaryStore) ReplaceDailyStats(ctx context.Context, venue string, stats []*domain.DailyStat) error {
	if venue == "" {
		return storage.ErrInvalidInput
	}
	gen := s.now().UnixNano()

	if len(stats) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `
			INSERT INTO daily_stats (
				venue, generation, report_date, unit_count, total_diff, total_games,
				avg_diff, avg_games, payout_ratio, sticky_win_rate
			)
		`)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}
		for _, st := range stats {
			if st == nil {
				_ = batch.Abort()
				return storage.ErrInvalidInput
			}
			err := batch.Append(
				venue,
				gen,
				st.Date.Time(),
				uint32(st.UnitCount),
				st.TotalDiff,
				st.TotalGames,
				st.AvgDiff,
				st.AvgGames,
				st.PayoutRatio,
				st.StickyWinRate,
			)
			if err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send batch: %w", err)
		}
	}

	return s.publish(ctx, venue, kindDaily, "daily_stats", gen)
}

// publish makes gen the visible generation and drops older rows.
func (s *SummaryStore) publish(ctx context.Context, venue, kind, table string, gen int64) error {
	err := s.conn.Exec(ctx, `
		INSERT INTO summary_generations (venue, kind, generation) VALUES (?, ?, ?)
	`, venue, kind, gen)
	if err != nil {
		return fmt.Errorf("publish %s generation: %w", kind, err)
	}

	query := fmt.Sprintf(`ALTER TABLE %s DELETE WHERE venue = ? AND generation < ?`, table)
	if err := s.conn.Exec(ctx, query, venue, gen); err != nil {
		return fmt.Errorf("drop old %s generations: %w", kind, err)
	}
	return nil
}

// GetUnitStats retrieves unit stats for a venue, ordered by unit_number ASC.
func (s *SummaryStore) GetUnitStats(ctx context.Context, venue string) ([]*domain.UnitStat, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT venue, unit_number, observations, hit_rate_10k, hit_rate_5k, avg_diff
		FROM unit_stats
		WHERE venue = ? AND generation = (
			SELECT max(generation) FROM summary_generations WHERE venue = ? AND kind = ?
		)
		ORDER BY unit_number ASC
	`, venue, venue, kindUnit)
	if err != nil {
		return nil, fmt.Errorf("query unit stats: %w", err)
	}
	defer rows.Close()

	var result []*domain.UnitStat
	for rows.Next() {
		var st domain.UnitStat
		var unitNumber int32
		var observations uint32
		if err := rows.Scan(&st.Venue, &unitNumber, &observations, &st.HitRate10k, &st.HitRate5k, &st.AvgDiff); err != nil {
			return nil, fmt.Errorf("scan unit stat: %w", err)
		}
		st.UnitNumber = int(unitNumber)
		st.Observations = int(observations)
		result = append(result, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit stats: %w", err)
	}
	return result, nil
}

// GetDailyStats retrieves daily stats for a venue, ordered by date ASC.
func (s *SummaryStore) GetDailyStats(ctx context.Context, venue string) ([]*domain.DailyStat, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT venue, report_date, unit_count, total_diff, total_games,
			avg_diff, avg_games, payout_ratio, sticky_win_rate
		FROM daily_stats
		WHERE venue = ? AND generation = (
			SELECT max(generation) FROM summary_generations WHERE venue = ? AND kind = ?
		)
		ORDER BY report_date ASC
	`, venue, venue, kindDaily)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyStat
	for rows.Next() {
		var st domain.DailyStat
		var date time.Time
		var unitCount uint32
		err := rows.Scan(
			&st.Venue,
			&date,
			&unitCount,
			&st.TotalDiff,
			&st.TotalGames,
			&st.AvgDiff,
			&st.AvgGames,
			&st.PayoutRatio,
			&st.StickyWinRate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		st.Date = domain.DateFromTime(date.UTC())
		st.UnitCount = int(unitCount)
		result = append(result, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stats: %w", err)
	}
	return result, nil
}
