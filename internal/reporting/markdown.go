package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Hall Report: %s\n\n", r.Venue))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Coverage
	sb.WriteString("## Coverage\n\n")
	if !r.Coverage.HasData() {
		sb.WriteString("No days ingested.\n\n")
	} else {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Days | %d |\n", r.Coverage.Days))
		sb.WriteString(fmt.Sprintf("| First Date | %s |\n", r.Coverage.FirstDate))
		sb.WriteString(fmt.Sprintf("| Last Date | %s |\n", r.Coverage.LastDate))
		sb.WriteString(fmt.Sprintf("| Unit Rows | %d |\n", r.Coverage.Units))
		sb.WriteString(fmt.Sprintf("| Total Diff | %d |\n", r.Coverage.TotalDiff))
		sb.WriteString(fmt.Sprintf("| Total Games | %d |\n", r.Coverage.TotalGames))
		sb.WriteString("\n")
	}

	// Filter and funnel
	sb.WriteString("## Data Cleaning\n\n")
	sb.WriteString(fmt.Sprintf("Venue filter: `%s` | Model filter: `%s` | Summary glyphs: `%s` | Max unit: %d\n\n",
		r.Filter.VenueSubstring, r.Filter.ModelSubstring, r.Filter.SummaryGlyphs, r.Filter.MaxUnitNumber))
	if r.Funnel != nil {
		sb.WriteString("| Stage | Records |\n")
		sb.WriteString("|-------|---------|\n")
		sb.WriteString(fmt.Sprintf("| Input | %d |\n", r.Funnel.Input))
		sb.WriteString(fmt.Sprintf("| Substring filter | %d |\n", r.Funnel.AfterSubstring))
		sb.WriteString(fmt.Sprintf("| Summary rows dropped | %d |\n", r.Funnel.AfterSummary))
		sb.WriteString(fmt.Sprintf("| Unit range | %d |\n", r.Funnel.AfterRange))
		sb.WriteString(fmt.Sprintf("| Dedup (date, unit) | %d |\n", r.Funnel.AfterDedup))
		sb.WriteString("\n")
	}

	// Daily stats
	sb.WriteString("## Daily Statistics\n\n")
	if len(r.DailyStats) == 0 {
		sb.WriteString("No daily statistics.\n\n")
	} else {
		sb.WriteString("| Date | Units | Total Diff | Avg Diff | Total Games | Avg Games | Payout % | Sticky Win % |\n")
		sb.WriteString("|------|-------|------------|----------|-------------|-----------|----------|--------------|\n")
		for _, d := range r.DailyStats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %.2f | %.2f |\n",
				d.Date, d.UnitCount, d.TotalDiff, d.AvgDiff, d.TotalGames, d.AvgGames, d.PayoutRatio, d.StickyWinRate))
		}
		sb.WriteString("\n")
	}

	// Unit stats
	sb.WriteString("## Unit Statistics\n\n")
	if len(r.UnitStats) == 0 {
		sb.WriteString("No unit statistics.\n\n")
	} else {
		sb.WriteString("| Unit | Days | Hit 10k % | Hit 5k % | Avg Diff |\n")
		sb.WriteString("|------|------|-----------|----------|----------|\n")
		for _, u := range r.UnitStats {
			sb.WriteString(fmt.Sprintf("| %d | %d | %.2f | %.2f | %d |\n",
				u.UnitNumber, u.Observations, u.HitRate10k, u.HitRate5k, u.AvgDiff))
		}
		sb.WriteString("\n")
	}

	// Data quality
	if len(r.DataQuality.Checks) > 0 {
		sb.WriteString("## Data Quality\n\n")
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, c := range r.DataQuality.Checks {
			status := "PASS"
			if !c.Pass {
				status = "FAIL"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, status))
		}
		sb.WriteString("\n")
		if !r.DataQuality.AllPass {
			sb.WriteString("Statistics are based on insufficient data.\n\n")
		}
	}

	// Review queue
	if len(r.Review) > 0 {
		sb.WriteString("## Needs Review\n\n")
		for _, item := range r.Review {
			sb.WriteString(fmt.Sprintf("- %s: %q (used %s, %s)\n", item.URL, item.Title, item.Token, item.Reason))
		}
		sb.WriteString("\n")
	}

	// Reproducibility
	if r.Reproducibility.DataVersion != "" {
		sb.WriteString("## Reproducibility\n\n")
		sb.WriteString(fmt.Sprintf("- Generator version: %s\n", r.Reproducibility.GeneratorVersion))
		sb.WriteString(fmt.Sprintf("- Data version: %s\n", r.Reproducibility.DataVersion))
		sb.WriteString(fmt.Sprintf("- Data source: %s\n", r.Reproducibility.DataSource))
		sb.WriteString("\n")
	}

	return sb.String()
}
