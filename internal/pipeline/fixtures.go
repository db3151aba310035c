package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/ingestion"
	"hall-data-lab/internal/retry"
	"hall-data-lab/internal/storage"
)

// Fixture shape: FixtureDays days from FixtureStart, FixtureUnits units numbered
// from 101, plus a totals row and a mis-parsed aggregate row per day.
const (
	FixtureDays  = 10
	FixtureUnits = 8
)

// FixtureStart is the first fixture day.
var FixtureStart = domain.MustDate(2024, 11, 1)

// LoadFixtures commits deterministic demo days for venue through the ingestion
// writer, so stores hold exactly what a collection pass would write. Days already
// present are left untouched.
func LoadFixtures(ctx context.Context, stores storage.Stores, venue string) error {
	start := FixtureStart.Time()
	w := ingestion.NewWriter(ingestion.WriterOptions{
		Records:     stores.Records,
		Rollups:     stores.Rollups,
		StorePolicy: retry.NoRetry(),
		Clock:       func() time.Time { return start.Add(FixtureDays * 24 * time.Hour) },
	})

	for day := 0; day < FixtureDays; day++ {
		date := domain.DateFromTime(start.AddDate(0, 0, day))
		task := domain.FetchTask{
			URL:  fmt.Sprintf("https://fixtures.invalid/%s/%s", venue, date.ISO()),
			Date: date,
		}
		_, err := w.Commit(ctx, venue, task, fixtureRows(day))
		if err != nil && !errors.Is(err, ingestion.ErrAlreadyIngested) {
			return fmt.Errorf("load fixture day %s: %w", date, err)
		}
	}
	return nil
}

func fixtureRows(day int) []domain.RawRow {
	rows := make([]domain.RawRow, 0, FixtureUnits+2)
	var totalDiff, totalGames int64
	for u := 0; u < FixtureUnits; u++ {
		unit := 101 + u
		diff := int64((unit*37+day*1013)%16000) - 6000
		games := int64(2000 + (unit*53+day*211)%7000)
		totalDiff += diff
		totalGames += games

		model := "Juggler"
		if u%2 == 1 {
			model = "Hanahana"
		}
		rows = append(rows, domain.RawRow{
			Name:          model,
			UnitLabelText: strconv.Itoa(unit),
			DiffText:      formatDiff(diff),
			GamesText:     strconv.FormatInt(games, 10),
		})
	}

	rows = append(rows,
		domain.RawRow{Name: "合計", UnitLabelText: "合計", DiffText: formatDiff(totalDiff), GamesText: strconv.FormatInt(totalGames, 10)},
		domain.RawRow{Name: "Juggler", UnitLabelText: "4506", DiffText: "+120", GamesText: "800"},
	)
	return rows
}

// formatDiff writes diffs the way report pages do: explicit plus, ▲ for minus.
func formatDiff(d int64) string {
	if d < 0 {
		return "▲" + strconv.FormatInt(-d, 10)
	}
	return "+" + strconv.FormatInt(d, 10)
}
