package reporting

import (
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/metrics"
)

// Report is the per-venue statistics report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Venue       string
	Filter      metrics.Filter

	// Collection coverage, from the rollup table
	Coverage Coverage

	// Cleaning funnel; nil when the report was built from stored statistics only
	Funnel *metrics.Funnel

	UnitStats  []*domain.UnitStat  // ordered by unit number
	DailyStats []*domain.DailyStat // ordered by date

	// Listing entries awaiting manual review
	Review []*domain.ReviewItem

	DataQuality     DataQualitySection
	Reproducibility ReproducibilityMetadata
}

// DataQualitySection holds the sufficiency checks run before the report is trusted.
type DataQualitySection struct {
	Checks  []SufficiencyCheckRow
	AllPass bool
}

// SufficiencyCheckRow is one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// ReproducibilityMetadata identifies the data and code a report was built from.
type ReproducibilityMetadata struct {
	GeneratorVersion string
	DataVersion      string // short hash of the venue's unit records
	DataSource       string // "db" or "fixtures"
}

// Coverage describes the ingested days of a venue.
type Coverage struct {
	Days       int
	FirstDate  domain.CalendarDate
	LastDate   domain.CalendarDate
	Units      int   // sum of rollup unit counts
	TotalDiff  int64 // sum of rollup diffs
	TotalGames int64 // sum of rollup games
}

// HasData reports whether any day was ingested.
func (c Coverage) HasData() bool {
	return c.Days > 0
}
