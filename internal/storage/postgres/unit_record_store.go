package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// UnitRecordStore implements storage.UnitRecordStore using PostgreSQL.
type UnitRecordStore struct {
	pool *Pool
}

// NewUnitRecordStore creates a new UnitRecordStore.
func NewUnitRecordStore(pool *Pool) *UnitRecordStore {
	return &UnitRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UnitRecordStore = (*UnitRecordStore)(nil)

// AppendBulk appends records in one transaction, skipping existing record IDs.
func (s *UnitRecordStore) AppendBulk(ctx context.Context, records []*domain.UnitRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for _, r := range records {
		if r == nil || r.RecordID == "" || r.Venue == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO unit_records (
			record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (record_id) DO NOTHING
	`

	inserted := 0
	for _, r := range records {
		tag, err := tx.Exec(ctx, query,
			r.RecordID,
			r.Venue,
			r.Date.Time(),
			r.RowIndex,
			r.ModelName,
			r.UnitLabel,
			r.PayoutDiff,
			r.PlayCount,
			r.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert unit record: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return inserted, nil
}

// GetByVenue retrieves all records for a venue, ordered by (date ASC, row_index ASC).
func (s *UnitRecordStore) GetByVenue(ctx context.Context, venue string) ([]*domain.UnitRecord, error) {
	query := `
		SELECT record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		FROM unit_records
		WHERE venue = $1
		ORDER BY report_date ASC, row_index ASC
	`

	rows, err := s.pool.Query(ctx, query, venue)
	if err != nil {
		return nil, fmt.Errorf("get unit records by venue: %w", err)
	}
	defer rows.Close()

	return scanUnitRecords(rows)
}

// GetByVenueDate retrieves one day's records ordered by row_index ASC.
func (s *UnitRecordStore) GetByVenueDate(ctx context.Context, venue string, date domain.CalendarDate) ([]*domain.UnitRecord, error) {
	query := `
		SELECT record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		FROM unit_records
		WHERE venue = $1 AND report_date = $2
		ORDER BY row_index ASC
	`

	rows, err := s.pool.Query(ctx, query, venue, date.Time())
	if err != nil {
		return nil, fmt.Errorf("get unit records by venue date: %w", err)
	}
	defer rows.Close()

	return scanUnitRecords(rows)
}

// scanUnitRecords scans multiple rows into a slice of UnitRecord.
func scanUnitRecords(rows pgx.Rows) ([]*domain.UnitRecord, error) {
	var records []*domain.UnitRecord

	for rows.Next() {
		var r domain.UnitRecord
		var date time.Time

		err := rows.Scan(
			&r.RecordID,
			&r.Venue,
			&date,
			&r.RowIndex,
			&r.ModelName,
			&r.UnitLabel,
			&r.PayoutDiff,
			&r.PlayCount,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan unit record row: %w", err)
		}
		r.Date = domain.DateFromTime(date)

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit record rows: %w", err)
	}

	return records, nil
}
