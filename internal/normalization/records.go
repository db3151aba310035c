package normalization

import (
	"strings"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/idhash"
)

// NormalizeRows converts a day's raw rows into unit records.
// Row order is preserved and becomes RowIndex, which feeds the deterministic record ID.
// Numeric cells go through NormalizeSignedInteger, so malformed cells become 0 rather
// than failing the day.
func NormalizeRows(venue string, date domain.CalendarDate, rows []domain.RawRow, createdAt int64) []*domain.UnitRecord {
	records := make([]*domain.UnitRecord, 0, len(rows))
	for i, row := range rows {
		label := strings.TrimSpace(row.UnitLabelText)
		records = append(records, &domain.UnitRecord{
			RecordID:   idhash.ComputeRecordID(venue, date, i, label),
			Venue:      venue,
			Date:       date,
			RowIndex:   i,
			ModelName:  strings.TrimSpace(row.Name),
			UnitLabel:  label,
			PayoutDiff: NormalizeSignedInteger(row.DiffText),
			PlayCount:  NormalizeSignedInteger(row.GamesText),
			CreatedAt:  createdAt,
		})
	}
	return records
}
