package domain

// DailyRollup summarises one ingested day for a venue.
// Corresponds to daily_rollups table. Its presence is the "day complete" marker:
// it is appended only after every UnitRecord of the day was durably written.
type DailyRollup struct {
	Venue      string
	Date       CalendarDate
	UnitCount  int
	TotalDiff  int64
	AvgDiff    int64 // TotalDiff / UnitCount, truncated toward zero
	TotalGames int64
	CreatedAt  int64 // ms
}

// NewDailyRollup derives the rollup for a day's records.
// Returns nil when records is empty: an empty day is never marked complete.
func NewDailyRollup(venue string, date CalendarDate, records []*UnitRecord, createdAt int64) *DailyRollup {
	if len(records) == 0 {
		return nil
	}
	r := &DailyRollup{
		Venue:     venue,
		Date:      date,
		UnitCount: len(records),
		CreatedAt: createdAt,
	}
	for _, rec := range records {
		r.TotalDiff += rec.PayoutDiff
		r.TotalGames += rec.PlayCount
	}
	r.AvgDiff = r.TotalDiff / int64(r.UnitCount)
	return r
}
