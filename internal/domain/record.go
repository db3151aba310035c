package domain

// RawRow is one table row as it appears on a report page, before numeric normalization.
type RawRow struct {
	Name          string // model / machine name column
	UnitLabelText string // displayed unit identifier
	DiffText      string // payout differential, may carry ▲ or fullwidth minus
	GamesText     string // play count
}

// UnitRecord is one unit's result for one day.
// Corresponds to unit_records table. Immutable once appended.
type UnitRecord struct {
	RecordID   string       // deterministic hash of (venue, date, row index, unit label)
	Venue      string       // venue identifier
	Date       CalendarDate // report day
	RowIndex   int          // position of the row on the report page
	ModelName  string       // raw model text, used by the aggregator's substring filter
	UnitLabel  string       // raw displayed identifier
	UnitNumber *int         // derived by the aggregator cleaning pass; nil when stored
	PayoutDiff int64        // signed payout differential
	PlayCount  int64        // games played
	CreatedAt  int64        // record creation timestamp (ms)
}
