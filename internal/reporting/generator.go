// Package reporting renders per-venue statistics as Markdown, CSV and terminal tables.
package reporting

import (
	"context"
	"fmt"
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/metrics"
	"hall-data-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	rollups storage.DailyRollupStore
	summary storage.SummaryStore
	reviews storage.ReviewStore
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. reviews may be nil.
func NewGenerator(rollups storage.DailyRollupStore, summary storage.SummaryStore, reviews storage.ReviewStore) *Generator {
	return &Generator{
		rollups: rollups,
		summary: summary,
		reviews: reviews,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the venue's report. When res is non-nil its statistics and funnel
// are used; otherwise the statistics are read back from the summary store.
func (g *Generator) Generate(ctx context.Context, venue string, filter metrics.Filter, res *metrics.Result) (*Report, error) {
	rollups, err := g.rollups.GetByVenue(ctx, venue)
	if err != nil {
		return nil, fmt.Errorf("load rollups: %w", err)
	}

	r := &Report{
		GeneratedAt: g.now(),
		Venue:       venue,
		Filter:      filter.WithDefaults(),
		Coverage:    coverage(rollups),
	}

	if res != nil {
		funnel := res.Funnel
		r.Funnel = &funnel
		r.UnitStats = res.UnitStats
		r.DailyStats = res.DailyStats
	} else {
		if r.UnitStats, err = g.summary.GetUnitStats(ctx, venue); err != nil {
			return nil, fmt.Errorf("load unit stats: %w", err)
		}
		if r.DailyStats, err = g.summary.GetDailyStats(ctx, venue); err != nil {
			return nil, fmt.Errorf("load daily stats: %w", err)
		}
	}

	if g.reviews != nil {
		if r.Review, err = g.reviews.GetByVenue(ctx, venue); err != nil {
			return nil, fmt.Errorf("load review items: %w", err)
		}
	}

	return r, nil
}

// coverage summarises rollups, which are ordered by date.
func coverage(rollups []*domain.DailyRollup) Coverage {
	var c Coverage
	for _, r := range rollups {
		if c.Days == 0 || r.Date.Before(c.FirstDate) {
			c.FirstDate = r.Date
		}
		if c.Days == 0 || r.Date.After(c.LastDate) {
			c.LastDate = r.Date
		}
		c.Days++
		c.Units += r.UnitCount
		c.TotalDiff += r.TotalDiff
		c.TotalGames += r.TotalGames
	}
	return c
}
