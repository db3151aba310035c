package reporting

import (
	"fmt"
	"strings"

	"hall-data-lab/internal/domain"
)

// RenderUnitCSV renders unit statistics as CSV string.
func RenderUnitCSV(stats []*domain.UnitStat) string {
	var sb strings.Builder

	sb.WriteString("venue,unit_number,observations,hit_rate_10k,hit_rate_5k,avg_diff\n")
	for _, u := range stats {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.4f,%.4f,%d\n",
			csvField(u.Venue),
			u.UnitNumber,
			u.Observations,
			u.HitRate10k,
			u.HitRate5k,
			u.AvgDiff,
		))
	}

	return sb.String()
}

// RenderDailyCSV renders daily statistics as CSV string.
func RenderDailyCSV(stats []*domain.DailyStat) string {
	var sb strings.Builder

	sb.WriteString("venue,date,unit_count,total_diff,total_games,avg_diff,avg_games,payout_ratio,sticky_win_rate\n")
	for _, d := range stats {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d,%.4f,%.4f\n",
			csvField(d.Venue),
			d.Date.ISO(),
			d.UnitCount,
			d.TotalDiff,
			d.TotalGames,
			d.AvgDiff,
			d.AvgGames,
			d.PayoutRatio,
			d.StickyWinRate,
		))
	}

	return sb.String()
}

// csvField quotes s when it contains a separator, quote or newline.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
