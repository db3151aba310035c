package reporting

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable renders the daily statistics of a report as a plain terminal table.
func RenderTable(r *Report) string {
	t := table.NewWriter()
	t.SetTitle(r.Venue)
	t.AppendHeader(table.Row{"Date", "Units", "Total Diff", "Avg Diff", "Total Games", "Payout %", "Sticky Win %"})

	for _, d := range r.DailyStats {
		t.AppendRow(table.Row{
			d.Date.String(),
			d.UnitCount,
			d.TotalDiff,
			d.AvgDiff,
			d.TotalGames,
			fmt.Sprintf("%.2f", d.PayoutRatio),
			fmt.Sprintf("%.2f", d.StickyWinRate),
		})
	}

	t.AppendFooter(table.Row{"Days", r.Coverage.Days, r.Coverage.TotalDiff, "", r.Coverage.TotalGames, "", ""})
	return t.Render()
}
