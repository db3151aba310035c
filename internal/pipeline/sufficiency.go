package pipeline

import (
	"fmt"

	"hall-data-lab/internal/reporting"
)

// SufficiencyThresholds are the minimums a venue's history must meet before its
// statistics are trusted.
type SufficiencyThresholds struct {
	MinDays        int     // ingested days
	MinUnits       int     // units with at least one observation
	MinKeptRatio   float64 // share of records surviving cleaning, 0..1
	MaxReviewItems int     // listing entries awaiting manual review
}

// DefaultSufficiencyThresholds returns the standard thresholds.
func DefaultSufficiencyThresholds() SufficiencyThresholds {
	return SufficiencyThresholds{
		MinDays:        7,
		MinUnits:       1,
		MinKeptRatio:   0.5,
		MaxReviewItems: 0,
	}
}

// CheckSufficiency evaluates report against th. The kept-ratio check is only run
// when the report carries a cleaning funnel.
func CheckSufficiency(report *reporting.Report, th SufficiencyThresholds) reporting.DataQualitySection {
	checks := []reporting.SufficiencyCheckRow{
		{
			Name:      "Days ingested",
			Threshold: fmt.Sprintf(">= %d", th.MinDays),
			Actual:    fmt.Sprintf("%d", report.Coverage.Days),
			Pass:      report.Coverage.Days >= th.MinDays,
		},
		{
			Name:      "Units observed",
			Threshold: fmt.Sprintf(">= %d", th.MinUnits),
			Actual:    fmt.Sprintf("%d", len(report.UnitStats)),
			Pass:      len(report.UnitStats) >= th.MinUnits,
		},
	}

	if f := report.Funnel; f != nil {
		ratio := 0.0
		if f.Input > 0 {
			ratio = float64(f.AfterDedup) / float64(f.Input)
		}
		checks = append(checks, reporting.SufficiencyCheckRow{
			Name:      "Records kept after cleaning",
			Threshold: fmt.Sprintf(">= %.0f%%", th.MinKeptRatio*100),
			Actual:    fmt.Sprintf("%.1f%%", ratio*100),
			Pass:      f.Input > 0 && ratio >= th.MinKeptRatio,
		})
	}

	checks = append(checks, reporting.SufficiencyCheckRow{
		Name:      "Pending review items",
		Threshold: fmt.Sprintf("<= %d", th.MaxReviewItems),
		Actual:    fmt.Sprintf("%d", len(report.Review)),
		Pass:      len(report.Review) <= th.MaxReviewItems,
	})

	allPass := true
	for _, c := range checks {
		if !c.Pass {
			allPass = false
			break
		}
	}
	return reporting.DataQualitySection{Checks: checks, AllPass: allPass}
}
