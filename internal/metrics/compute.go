package metrics

import (
	"sort"

	"hall-data-lab/internal/domain"
)

// Default thresholds.
const (
	DefaultHighHit     = 10000
	DefaultLowHit      = 5000
	DefaultStickyGames = 5000
)

// Thresholds are the diff and play-count cut-offs used by the statistics.
type Thresholds struct {
	HighHit     int64 // diff counted towards HitRate10k
	LowHit      int64 // diff counted towards HitRate5k
	StickyGames int64 // games needed for a unit to count as a sticky win
}

// DefaultThresholds returns the standard thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{HighHit: DefaultHighHit, LowHit: DefaultLowHit, StickyGames: DefaultStickyGames}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.HighHit == 0 {
		t.HighHit = d.HighHit
	}
	if t.LowHit == 0 {
		t.LowHit = d.LowHit
	}
	if t.StickyGames == 0 {
		t.StickyGames = d.StickyGames
	}
	return t
}

// ComputeUnitStats summarises each unit over all its days, ordered by unit number.
// Records must carry a UnitNumber (see KeepUnitRange).
func ComputeUnitStats(records []*domain.UnitRecord, th Thresholds) []*domain.UnitStat {
	th = th.withDefaults()

	type acc struct {
		venue string
		obs   int
		high  int
		low   int
		diff  int64
	}
	byUnit := make(map[int]*acc)
	for _, r := range records {
		if r.UnitNumber == nil {
			continue
		}
		a, ok := byUnit[*r.UnitNumber]
		if !ok {
			a = &acc{venue: r.Venue}
			byUnit[*r.UnitNumber] = a
		}
		a.obs++
		a.diff += r.PayoutDiff
		if r.PayoutDiff >= th.HighHit {
			a.high++
		}
		if r.PayoutDiff >= th.LowHit {
			a.low++
		}
	}

	stats := make([]*domain.UnitStat, 0, len(byUnit))
	for unit, a := range byUnit {
		stats = append(stats, &domain.UnitStat{
			Venue:        a.venue,
			UnitNumber:   unit,
			Observations: a.obs,
			HitRate10k:   percent(a.high, a.obs),
			HitRate5k:    percent(a.low, a.obs),
			AvgDiff:      safeDiv(a.diff, int64(a.obs)),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].UnitNumber < stats[j].UnitNumber
	})
	return stats
}

// ComputeDailyStats summarises each date, ordered by date.
func ComputeDailyStats(records []*domain.UnitRecord, th Thresholds) []*domain.DailyStat {
	th = th.withDefaults()

	type acc struct {
		venue  string
		units  int
		diff   int64
		games  int64
		sticky int
	}
	byDate := make(map[domain.CalendarDate]*acc)
	for _, r := range records {
		a, ok := byDate[r.Date]
		if !ok {
			a = &acc{venue: r.Venue}
			byDate[r.Date] = a
		}
		a.units++
		a.diff += r.PayoutDiff
		a.games += r.PlayCount
		if r.PlayCount >= th.StickyGames && r.PayoutDiff > 0 {
			a.sticky++
		}
	}

	stats := make([]*domain.DailyStat, 0, len(byDate))
	for date, a := range byDate {
		stats = append(stats, &domain.DailyStat{
			Venue:         a.venue,
			Date:          date,
			UnitCount:     a.units,
			TotalDiff:     a.diff,
			TotalGames:    a.games,
			AvgDiff:       safeDiv(a.diff, int64(a.units)),
			AvgGames:      safeDiv(a.games, int64(a.units)),
			PayoutRatio:   PayoutRatio(a.games, a.diff),
			StickyWinRate: percent(a.sticky, a.units),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Date.Before(stats[j].Date)
	})
	return stats
}

// PayoutRatio returns (games*3 + diff) / (games*3) * 100, or 0 when games is 0.
// Three coins are inserted per game.
func PayoutRatio(games, diff int64) float64 {
	if games == 0 {
		return 0
	}
	in := float64(games * 3)
	return (in + float64(diff)) / in * 100
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func safeDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return a / b
}
