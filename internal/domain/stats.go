package domain

// UnitStat is the aggregator's per-unit summary over the filtered history window.
// Corresponds to unit_stats table (overwritten on every aggregation run).
type UnitStat struct {
	Venue        string
	UnitNumber   int
	Observations int     // days with data for this unit
	HitRate10k   float64 // percent of days with diff >= high threshold
	HitRate5k    float64 // percent of days with diff >= low threshold
	AvgDiff      int64   // truncated mean diff; 0 with no observations
}

// DailyStat is the aggregator's per-date summary.
// Corresponds to daily_stats table (overwritten on every aggregation run).
type DailyStat struct {
	Venue         string
	Date          CalendarDate
	UnitCount     int
	TotalDiff     int64
	TotalGames    int64
	AvgDiff       int64
	AvgGames      int64
	PayoutRatio   float64 // (games*3 + diff) / (games*3) * 100; 0 when games == 0
	StickyWinRate float64 // percent of units with games >= threshold and diff > 0
}
