package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/metrics"
	"hall-data-lab/internal/storage/memory"
)

var fixedClock = func() time.Time { return time.Date(2024, 11, 6, 12, 0, 0, 0, time.UTC) }

func setupStores(t *testing.T) (*memory.DailyRollupStore, *memory.SummaryStore, *memory.ReviewStore) {
	t.Helper()
	ctx := context.Background()

	rollups := memory.NewDailyRollupStore()
	summary := memory.NewSummaryStore()
	reviews := memory.NewReviewStore()

	for _, r := range []*domain.DailyRollup{
		{Venue: "hall-x", Date: domain.MustDate(2024, 11, 5), UnitCount: 2, TotalDiff: 1870, AvgDiff: 935, TotalGames: 8300},
		{Venue: "hall-x", Date: domain.MustDate(2024, 11, 4), UnitCount: 1, TotalDiff: -300, AvgDiff: -300, TotalGames: 2000},
	} {
		if err := rollups.Append(ctx, r); err != nil {
			t.Fatalf("Append rollup failed: %v", err)
		}
	}

	if err := summary.ReplaceUnitStats(ctx, "hall-x", []*domain.UnitStat{
		{UnitNumber: 123, Observations: 2, HitRate10k: 0, HitRate5k: 50, AvgDiff: 1385},
	}); err != nil {
		t.Fatalf("ReplaceUnitStats failed: %v", err)
	}
	if err := summary.ReplaceDailyStats(ctx, "hall-x", []*domain.DailyStat{
		{Date: domain.MustDate(2024, 11, 5), UnitCount: 2, TotalDiff: 1870, TotalGames: 8300, AvgDiff: 935, AvgGames: 4150, PayoutRatio: 107.51, StickyWinRate: 50},
	}); err != nil {
		t.Fatalf("ReplaceDailyStats failed: %v", err)
	}

	if err := reviews.Flag(ctx, &domain.ReviewItem{
		Venue: "hall-x", URL: "https://hall.example/report/1005", Title: "2024/11/05 10/10", Token: "2024/11/05", Reason: "ambiguous_date", FlaggedAt: 1,
	}); err != nil {
		t.Fatalf("Flag failed: %v", err)
	}

	return rollups, summary, reviews
}

func TestGenerator_FromStoredStats(t *testing.T) {
	rollups, summary, reviews := setupStores(t)
	gen := NewGenerator(rollups, summary, reviews).WithClock(fixedClock)

	r, err := gen.Generate(context.Background(), "hall-x", metrics.Filter{}, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if r.Coverage.Days != 2 {
		t.Errorf("Expected 2 days, got %d", r.Coverage.Days)
	}
	if !r.Coverage.FirstDate.Equal(domain.MustDate(2024, 11, 4)) || !r.Coverage.LastDate.Equal(domain.MustDate(2024, 11, 5)) {
		t.Errorf("Unexpected range %s..%s", r.Coverage.FirstDate, r.Coverage.LastDate)
	}
	if r.Coverage.TotalDiff != 1570 {
		t.Errorf("Expected total diff 1570, got %d", r.Coverage.TotalDiff)
	}
	if r.Funnel != nil {
		t.Error("Expected no funnel for stored stats")
	}
	if len(r.UnitStats) != 1 || len(r.DailyStats) != 1 || len(r.Review) != 1 {
		t.Errorf("Unexpected section sizes: %d units, %d days, %d review", len(r.UnitStats), len(r.DailyStats), len(r.Review))
	}
	if r.Filter.MaxUnitNumber != metrics.DefaultMaxUnitNumber {
		t.Errorf("Expected filter defaults to be filled, got %+v", r.Filter)
	}
}

func TestGenerator_FromResult(t *testing.T) {
	rollups, summary, _ := setupStores(t)
	gen := NewGenerator(rollups, summary, nil).WithClock(fixedClock)

	res := &metrics.Result{Funnel: metrics.Funnel{Input: 5, AfterDedup: 3}}
	r, err := gen.Generate(context.Background(), "hall-x", metrics.Filter{}, res)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if r.Funnel == nil || r.Funnel.Input != 5 {
		t.Errorf("Expected funnel from result, got %+v", r.Funnel)
	}
	if len(r.DailyStats) != 0 {
		t.Errorf("Expected stats from result, got %d days", len(r.DailyStats))
	}
}

func TestRenderMarkdown(t *testing.T) {
	rollups, summary, reviews := setupStores(t)
	gen := NewGenerator(rollups, summary, reviews).WithClock(fixedClock)
	r, err := gen.Generate(context.Background(), "hall-x", metrics.Filter{}, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)
	for _, want := range []string{
		"# Hall Report: hall-x",
		"Generated: 2024-11-06T12:00:00Z",
		"| Days | 2 |",
		"| 2024/11/05 | 2 | 1870 | 935 | 8300 | 4150 | 107.51 | 50.00 |",
		"| 123 | 2 | 0.00 | 50.00 | 1385 |",
		"## Needs Review",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{Venue: "hall-y", GeneratedAt: fixedClock()})
	if !strings.Contains(md, "No days ingested.") || !strings.Contains(md, "No daily statistics.") {
		t.Errorf("Expected empty-state text, got:\n%s", md)
	}
	if strings.Contains(md, "Needs Review") {
		t.Error("Review section must be omitted when empty")
	}
}

func TestRenderCSV(t *testing.T) {
	units := RenderUnitCSV([]*domain.UnitStat{{Venue: "hall-x", UnitNumber: 7, Observations: 4, HitRate10k: 25, HitRate5k: 50, AvgDiff: -120}})
	wantUnits := "venue,unit_number,observations,hit_rate_10k,hit_rate_5k,avg_diff\nhall-x,7,4,25.0000,50.0000,-120\n"
	if units != wantUnits {
		t.Errorf("Expected:\n%s\ngot:\n%s", wantUnits, units)
	}

	daily := RenderDailyCSV([]*domain.DailyStat{{Venue: "hall,x", Date: domain.MustDate(2024, 11, 5), UnitCount: 2, TotalDiff: 1870, TotalGames: 8300, AvgDiff: 935, AvgGames: 4150}})
	lines := strings.Split(strings.TrimSpace(daily), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and one row, got %d lines", len(lines))
	}
	if lines[1] != `"hall,x",2024-11-05,2,1870,8300,935,4150,0.0000,0.0000` {
		t.Errorf("Unexpected row %q", lines[1])
	}
}

func TestRenderTable(t *testing.T) {
	rollups, summary, _ := setupStores(t)
	r, err := NewGenerator(rollups, summary, nil).WithClock(fixedClock).Generate(context.Background(), "hall-x", metrics.Filter{}, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	out := RenderTable(r)
	for _, want := range []string{"hall-x", "2024/11/05", "1870", "107.51"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table missing %q:\n%s", want, out)
		}
	}
}
