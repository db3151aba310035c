package storage

import (
	"context"

	"hall-data-lab/internal/domain"
)

// UnitRecordStore provides access to unit_records storage.
type UnitRecordStore interface {
	// AppendBulk appends records, skipping any whose record_id already exists.
	// Returns the number of rows actually inserted. Re-appending a day is a no-op.
	AppendBulk(ctx context.Context, records []*domain.UnitRecord) (int, error)

	// GetByVenue retrieves all records for a venue, ordered by (date ASC, row_index ASC).
	GetByVenue(ctx context.Context, venue string) ([]*domain.UnitRecord, error)

	// GetByVenueDate retrieves one day's records ordered by row_index ASC.
	GetByVenueDate(ctx context.Context, venue string, date domain.CalendarDate) ([]*domain.UnitRecord, error)
}

// DailyRollupStore provides access to daily_rollups storage.
// A rollup row is the completion marker for a (venue, date).
type DailyRollupStore interface {
	// Append adds a rollup. Returns ErrDuplicateKey if (venue, date) exists.
	Append(ctx context.Context, r *domain.DailyRollup) error

	// GetDates returns every ingested date for a venue, ordered ASC.
	GetDates(ctx context.Context, venue string) ([]domain.CalendarDate, error)

	// GetByVenue retrieves all rollups for a venue, ordered by date ASC.
	GetByVenue(ctx context.Context, venue string) ([]*domain.DailyRollup, error)
}

// SummaryStore holds the derived statistics tables. Unlike the other stores these
// tables are regenerated from history: each Replace call overwrites a venue's rows.
type SummaryStore interface {
	// ReplaceUnitStats atomically replaces all unit stats of a venue.
	ReplaceUnitStats(ctx context.Context, venue string, stats []*domain.UnitStat) error

	// ReplaceDailyStats atomically replaces all daily stats of a venue.
	ReplaceDailyStats(ctx context.Context, venue string, stats []*domain.DailyStat) error

	// GetUnitStats retrieves unit stats for a venue, ordered by unit_number ASC.
	GetUnitStats(ctx context.Context, venue string) ([]*domain.UnitStat, error)

	// GetDailyStats retrieves daily stats for a venue, ordered by date ASC.
	GetDailyStats(ctx context.Context, venue string) ([]*domain.DailyStat, error)
}

// ReviewStore persists listing entries flagged for manual review.
type ReviewStore interface {
	// Flag records an item. Flagging the same (venue, url) again is a no-op.
	Flag(ctx context.Context, item *domain.ReviewItem) error

	// GetByVenue retrieves flagged items for a venue, ordered by flagged_at ASC.
	GetByVenue(ctx context.Context, venue string) ([]*domain.ReviewItem, error)
}

// Stores bundles the stores a collection run needs.
type Stores struct {
	Records UnitRecordStore
	Rollups DailyRollupStore
	Summary SummaryStore
	Reviews ReviewStore
}
