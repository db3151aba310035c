package orchestrator

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hall-data-lab/internal/config"
	"hall-data-lab/internal/fetch"
	"hall-data-lab/internal/fetch/fetchtest"
	"hall-data-lab/internal/storage/memory"
)

const testConfig = `
default_year: 2024
store:
  backend: memory
fetch:
  mode: http
  listing_settle: -1s
  report_settle: -1s
collect:
  concurrency: 2
  aggregate_after_collect: true
venues:
  - id: x
    display_name: Hall X
    listing_url: https://hall.example/x/list
    strategy: pattern
    detail_query: view=all
    polite_delay: 1ms
  - id: y
    display_name: Hall Y
    listing_url: https://hall.example/y/list
    strategy: pattern
    polite_delay: 1ms
`

const reportX = `<html><head><title>2024/11/05 Hall X</title></head><body><table>
<tr><th>機種名</th><th>台番</th><th>G数</th><th>差枚</th><th>BB</th></tr>
<tr><td>Model A</td><td>123</td><td>5200</td><td>+3070</td><td>10</td></tr>
<tr><td>Model B</td><td>124</td><td>3100</td><td>▲1200</td><td>3</td></tr>
<tr><td>合計</td><td>合計</td><td>8300</td><td>1870</td><td>13</td></tr>
</table></body></html>`

func newTestOrchestrator(t *testing.T, pages *fetchtest.Pages, venues ...string) (*Orchestrator, *config.Config) {
	t.Helper()

	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)

	o, err := New(Options{
		Config: cfg,
		Stores: memory.NewStores(),
		Source: pages,
		Venues: venues,
		Clock:  func() time.Time { return time.Date(2024, 11, 6, 9, 0, 0, 0, time.UTC) },
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	return o, cfg
}

func TestRun_VenueFailureIsIsolated(t *testing.T) {
	pages := fetchtest.NewPages(map[string]string{
		"https://hall.example/x/list":               `<html><body><a href="/report/1005">2024/11/05 Hall X</a></body></html>`,
		"https://hall.example/report/1005?view=all": reportX,
	})
	// Venue y's listing is not served: 404.
	o, _ := newTestOrchestrator(t, pages)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Venues, 2)

	x, y := result.Venues[0], result.Venues[1]
	assert.Equal(t, "x", x.Venue)
	require.NoError(t, x.Err)
	require.NotNil(t, x.Run)
	assert.Len(t, x.Run.Committed, 1)
	assert.Equal(t, 3, x.Run.RecordsWritten)

	// Summary row is stored but dropped by aggregation.
	require.NoError(t, x.AggregateErr)
	require.NotNil(t, x.Aggregation)
	assert.Len(t, x.Aggregation.UnitStats, 2)
	assert.Equal(t, 3, x.Aggregation.Funnel.Input)
	assert.Equal(t, 2, x.Aggregation.Funnel.AfterDedup)

	assert.Equal(t, "y", y.Venue)
	var se *fetch.StatusError
	assert.True(t, errors.As(y.Err, &se), "expected StatusError, got %v", y.Err)

	assert.Equal(t, 1, result.Failed())
	assert.Equal(t, 1, result.Committed())
}

func TestRun_SelectedVenues(t *testing.T) {
	pages := fetchtest.NewPages(map[string]string{
		"https://hall.example/y/list": `<html><body></body></html>`,
	})
	o, _ := newTestOrchestrator(t, pages, "y")

	assert.Equal(t, []string{"y"}, o.Venues())

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Venues, 1)
	assert.NoError(t, result.Venues[0].Err)
	assert.Equal(t, 0, result.Committed())

	for _, u := range pages.Calls() {
		assert.NotContains(t, u, "/x/")
	}
}

func TestNew_UnknownVenue(t *testing.T) {
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)

	_, err = New(Options{
		Config: cfg,
		Stores: memory.NewStores(),
		Source: fetchtest.NewPages(nil),
		Venues: []string{"z"},
		Logger: log.New(io.Discard, "", 0),
	})
	assert.True(t, errors.Is(err, ErrUnknownVenue))
}

func TestRun_Cancelled(t *testing.T) {
	o, _ := newTestOrchestrator(t, fetchtest.NewPages(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Committed())
}

func TestAggregate_SkipsVenuesWithoutRecords(t *testing.T) {
	pages := fetchtest.NewPages(map[string]string{
		"https://hall.example/x/list":               `<html><body><a href="/report/1005">2024/11/05 Hall X</a></body></html>`,
		"https://hall.example/report/1005?view=all": reportX,
	})
	o, _ := newTestOrchestrator(t, pages)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	results, err := o.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, results, "x")
	assert.NotContains(t, results, "y")
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.FetchConfig{Mode: config.FetchModeHTTP, RequestTimeout: time.Second}, nil)
	require.NoError(t, err)
	_, ok := src.(*fetch.HTTPSource)
	assert.True(t, ok)

	src, err = NewSource(config.FetchConfig{Mode: config.FetchModeRod}, nil)
	require.NoError(t, err)
	rod, ok := src.(*fetch.RodSource)
	require.True(t, ok)
	// Chrome is started lazily, so closing an unused source is a no-op.
	assert.NoError(t, rod.Close())

	_, err = NewSource(config.FetchConfig{Mode: "curl"}, nil)
	assert.Error(t, err)
}
