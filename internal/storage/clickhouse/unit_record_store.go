package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// UnitRecordStore implements storage.UnitRecordStore using ClickHouse.
// Used as the analytics copy of the record history; rollups stay in an OLTP backend.
type UnitRecordStore struct {
	conn *Conn
}

// NewUnitRecordStore creates a new UnitRecordStore.
func NewUnitRecordStore(conn *Conn) *UnitRecordStore {
	return &UnitRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.UnitRecordStore = (*UnitRecordStore)(nil)

// AppendBulk inserts records whose record_id is not stored yet.
// MergeTree does not enforce uniqueness, so existing ids are filtered first;
// ReplacingMergeTree collapses any race between concurrent writers at merge time.
func (s *UnitRecordStore) AppendBulk(ctx context.Context, records []*domain.UnitRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r == nil || r.RecordID == "" || r.Venue == "" {
			return 0, storage.ErrInvalidInput
		}
		ids = append(ids, r.RecordID)
	}

	existing, err := s.existingIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("check existing ids: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO unit_records (
			record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	inserted := 0
	for _, r := range records {
		if _, ok := existing[r.RecordID]; ok {
			continue
		}
		existing[r.RecordID] = struct{}{}

		err := batch.Append(
			r.RecordID,
			r.Venue,
			r.Date.Time(),
			uint32(r.RowIndex),
			r.ModelName,
			r.UnitLabel,
			r.PayoutDiff,
			r.PlayCount,
			r.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("append to batch: %w", err)
		}
		inserted++
	}

	if inserted == 0 {
		_ = batch.Abort()
		return 0, nil
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}
	return inserted, nil
}

func (s *UnitRecordStore) existingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT record_id FROM unit_records WHERE record_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// GetByVenue retrieves all records for a venue, ordered by (date ASC, row_index ASC).
func (s *UnitRecordStore) GetByVenue(ctx context.Context, venue string) ([]*domain.UnitRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		FROM unit_records FINAL
		WHERE venue = ?
		ORDER BY report_date ASC, row_index ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("query unit records by venue: %w", err)
	}
	defer rows.Close()

	return scanUnitRecords(rows)
}

// GetByVenueDate retrieves one day's records ordered by row_index ASC.
func (s *UnitRecordStore) GetByVenueDate(ctx context.Context, venue string, date domain.CalendarDate) ([]*domain.UnitRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT record_id, venue, report_date, row_index, model_name, unit_label,
			payout_diff, play_count, created_at
		FROM unit_records FINAL
		WHERE venue = ? AND report_date = ?
		ORDER BY row_index ASC
	`, venue, date.Time())
	if err != nil {
		return nil, fmt.Errorf("query unit records by venue date: %w", err)
	}
	defer rows.Close()

	return scanUnitRecords(rows)
}

func scanUnitRecords(rows driver.Rows) ([]*domain.UnitRecord, error) {
	var records []*domain.UnitRecord

	for rows.Next() {
		var r domain.UnitRecord
		var date time.Time
		var rowIndex uint32

		err := rows.Scan(
			&r.RecordID,
			&r.Venue,
			&date,
			&rowIndex,
			&r.ModelName,
			&r.UnitLabel,
			&r.PayoutDiff,
			&r.PlayCount,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan unit record: %w", err)
		}
		r.Date = domain.DateFromTime(date.UTC())
		r.RowIndex = int(rowIndex)

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit records: %w", err)
	}
	return records, nil
}
