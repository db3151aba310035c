package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// UnitRecordStore implements storage.UnitRecordStore using SQLite.
type UnitRecordStore struct {
	db *DB
}

// NewUnitRecordStore creates a new UnitRecordStore.
func NewUnitRecordStore(db *DB) *UnitRecordStore {
	return &UnitRecordStore{db: db}
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO unit_records (
			record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (record_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.RecordID,
			r.Venue,
			r.Date.ISO(),
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
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// GetByVenue retrieves all records for a venue, ordered by (date ASC, row_index ASC).
func (s *UnitRecordStore) GetByVenue(ctx context.Context, venue string) ([]*domain.UnitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		FROM unit_records
		WHERE venue = ?
		ORDER BY report_date ASC, row_index ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("get unit records by venue: %w", err)
	}
	defer rows.Close()

	return scanUnitRecords(rows)
}

// GetByVenueDate retrieves one day's records ordered by row_index ASC.
func (s *UnitRecordStore) GetByVenueDate(ctx context.Context, venue string, date domain.CalendarDate) ([]*domain.UnitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		FROM unit_records
		WHERE venue = ? AND report_date = ?
		ORDER BY row_index ASC
	`, venue, date.ISO())
	if err != nil {
		return nil, fmt.Errorf("get unit records by venue date: %w", err)
	}
	defer rows.Close()

	return scanUnitRecords(rows)
}

func scanUnitRecords(rows *sql.Rows) ([]*domain.UnitRecord, error) {
	var records []*domain.UnitRecord

	for rows.Next() {
		var r domain.UnitRecord
		var date string

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
		if r.Date, err = parseDate(date); err != nil {
			return nil, err
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit record rows: %w", err)
	}
	return records, nil
}
