package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

func testRecords(venue string, date domain.CalendarDate) []*domain.UnitRecord {
	return []*domain.UnitRecord{
		{RecordID: venue + "-r1", Venue: venue, Date: date, RowIndex: 0, ModelName: "Model X", UnitLabel: "101", PayoutDiff: 3070, PlayCount: 5200, CreatedAt: 1700000000000},
		{RecordID: venue + "-r2", Venue: venue, Date: date, RowIndex: 1, ModelName: "Model X", UnitLabel: "102", PayoutDiff: -1200, PlayCount: 3100, CreatedAt: 1700000000000},
	}
}

func TestUnitRecordStore_AppendBulkIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUnitRecordStore(pool)
	date := domain.MustDate(2024, 11, 5)

	inserted, err := store.AppendBulk(ctx, testRecords("hall-a", date))
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = store.AppendBulk(ctx, testRecords("hall-a", date))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	records, err := store.GetByVenue(ctx, "hall-a")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, date, records[0].Date)
	assert.Equal(t, int64(3070), records[0].PayoutDiff)
	assert.Equal(t, int64(-1200), records[1].PayoutDiff)
	assert.Equal(t, "102", records[1].UnitLabel)

	day, err := store.GetByVenueDate(ctx, "hall-a", date)
	require.NoError(t, err)
	assert.Len(t, day, 2)

	other, err := store.GetByVenueDate(ctx, "hall-a", domain.MustDate(2024, 11, 4))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDailyRollupStore_AppendAndDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyRollupStore(pool)

	rollup := &domain.DailyRollup{
		Venue:      "hall-a",
		Date:       domain.MustDate(2024, 11, 5),
		UnitCount:  2,
		TotalDiff:  1870,
		AvgDiff:    935,
		TotalGames: 8300,
		CreatedAt:  1700000000000,
	}

	require.NoError(t, store.Append(ctx, rollup))

	err := store.Append(ctx, rollup)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.Append(ctx, &domain.DailyRollup{
		Venue: "hall-a", Date: domain.MustDate(2024, 11, 3), UnitCount: 1, CreatedAt: 1,
	}))

	dates, err := store.GetDates(ctx, "hall-a")
	require.NoError(t, err)
	assert.Equal(t, []domain.CalendarDate{
		domain.MustDate(2024, 11, 3),
		domain.MustDate(2024, 11, 5),
	}, dates)

	rollups, err := store.GetByVenue(ctx, "hall-a")
	require.NoError(t, err)
	require.Len(t, rollups, 2)
	assert.Equal(t, int64(935), rollups[1].AvgDiff)
	assert.Equal(t, int64(8300), rollups[1].TotalGames)
}

func TestSummaryStore_Replace(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSummaryStore(pool)

	require.NoError(t, store.ReplaceUnitStats(ctx, "hall-a", []*domain.UnitStat{
		{UnitNumber: 102, Observations: 4, HitRate10k: 25, HitRate5k: 50, AvgDiff: 300},
		{UnitNumber: 101, Observations: 2, AvgDiff: -100},
	}))
	require.NoError(t, store.ReplaceUnitStats(ctx, "hall-a", []*domain.UnitStat{
		{UnitNumber: 101, Observations: 3, AvgDiff: 50},
	}))

	units, err := store.GetUnitStats(ctx, "hall-a")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 3, units[0].Observations)

	require.NoError(t, store.ReplaceDailyStats(ctx, "hall-a", []*domain.DailyStat{
		{Date: domain.MustDate(2024, 11, 5), UnitCount: 2, TotalDiff: 1870, TotalGames: 8300, AvgDiff: 935, AvgGames: 4150, PayoutRatio: 107.5, StickyWinRate: 50},
	}))

	daily, err := store.GetDailyStats(ctx, "hall-a")
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, domain.MustDate(2024, 11, 5), daily[0].Date)
	assert.InDelta(t, 107.5, daily[0].PayoutRatio, 0.0001)
	assert.Equal(t, "hall-a", daily[0].Venue)
}

func TestReviewStore_Flag(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewReviewStore(pool)

	item := &domain.ReviewItem{
		Venue: "hall-a", URL: "https://example.com/r/123", Title: "11/5 11/6",
		Token: "11/5", Reason: "ambiguous_date", FlaggedAt: 1,
	}
	require.NoError(t, store.Flag(ctx, item))
	require.NoError(t, store.Flag(ctx, item))

	items, err := store.GetByVenue(ctx, "hall-a")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
