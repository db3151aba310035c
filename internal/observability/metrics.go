// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Discovery and planning
	CandidatesDiscovered *prometheus.CounterVec
	TasksPlanned         *prometheus.CounterVec
	TasksSkipped         *prometheus.CounterVec
	AmbiguousTitles      *prometheus.CounterVec

	// Collection
	TasksFailed      *prometheus.CounterVec
	RecordsWritten   *prometheus.CounterVec
	RollupsWritten   *prometheus.CounterVec
	FetchLatency     *prometheus.HistogramVec
	StoreLatency     *prometheus.HistogramVec
	StoreErrors      *prometheus.CounterVec
	CollectionRuns   *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	AggregationRuns  *prometheus.CounterVec
	ReportsGenerated prometheus.Counter

	// Health
	LastSuccessfulCollection *prometheus.GaugeVec
	LastSuccessfulReport     prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "hall_data_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		CandidatesDiscovered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_total",
			Help:      "Total number of report links discovered on listing pages",
		}, []string{"venue"}),
		TasksPlanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "tasks_planned_total",
			Help:      "Total number of fetch tasks planned",
		}, []string{"venue"}),
		TasksSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "candidates_skipped_total",
			Help:      "Total number of candidates dropped by the planner by reason",
		}, []string{"venue", "reason"}),
		AmbiguousTitles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "ambiguous_titles_total",
			Help:      "Total number of listing titles flagged for manual review",
		}, []string{"venue"}),

		TasksFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "tasks_failed_total",
			Help:      "Total number of abandoned tasks by failure kind",
		}, []string{"venue", "kind"}),
		RecordsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "records_written_total",
			Help:      "Total number of unit records appended",
		}, []string{"venue"}),
		RollupsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "rollups_written_total",
			Help:      "Total number of days marked complete",
		}, []string{"venue"}),
		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "latency_seconds",
			Help:      "Page fetch latency in seconds, settle wait included",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"venue", "page"}),
		StoreLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "latency_seconds",
			Help:      "Store call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total number of failed store calls",
		}, []string{"operation"}),
		CollectionRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "runs_total",
			Help:      "Total number of venue collection runs by status",
		}, []string{"venue", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "duration_seconds",
			Help:      "Venue collection run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"venue"}),
		AggregationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "runs_total",
			Help:      "Total number of aggregation runs by status",
		}, []string{"venue", "status"}),
		ReportsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		LastSuccessfulCollection: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_collection_timestamp",
			Help:      "Unix timestamp of the last successful collection run",
		}, []string{"venue"}),
		LastSuccessfulReport: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_report_timestamp",
			Help:      "Unix timestamp of the last successful report run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordDiscovered records the candidates found on a venue's listing.
func RecordDiscovered(venue string, n int) {
	DefaultMetrics.CandidatesDiscovered.WithLabelValues(venue).Add(float64(n))
}

// RecordPlan records planner output: tasks, skips by reason, and flagged titles.
func RecordPlan(venue string, tasks int, skips map[string]int, ambiguous int) {
	DefaultMetrics.TasksPlanned.WithLabelValues(venue).Add(float64(tasks))
	for reason, n := range skips {
		DefaultMetrics.TasksSkipped.WithLabelValues(venue, reason).Add(float64(n))
	}
	DefaultMetrics.AmbiguousTitles.WithLabelValues(venue).Add(float64(ambiguous))
}

// RecordTaskFailed increments the failed task counter for kind.
func RecordTaskFailed(venue, kind string) {
	DefaultMetrics.TasksFailed.WithLabelValues(venue, kind).Inc()
}

// RecordCommit records a committed day.
func RecordCommit(venue string, records int) {
	DefaultMetrics.RecordsWritten.WithLabelValues(venue).Add(float64(records))
	DefaultMetrics.RollupsWritten.WithLabelValues(venue).Inc()
}

// RecordFetch records page fetch latency. page is "listing" or "report".
func RecordFetch(venue, page string, d time.Duration) {
	DefaultMetrics.FetchLatency.WithLabelValues(venue, page).Observe(d.Seconds())
}

// RecordStoreCall records store call metrics.
func RecordStoreCall(operation string, d time.Duration, err error) {
	DefaultMetrics.StoreLatency.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		DefaultMetrics.StoreErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCollectionRun records a finished venue run.
func RecordCollectionRun(venue, status string, d time.Duration) {
	DefaultMetrics.CollectionRuns.WithLabelValues(venue, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(venue).Observe(d.Seconds())
	if status == "success" {
		DefaultMetrics.LastSuccessfulCollection.WithLabelValues(venue).SetToCurrentTime()
	}
}

// RecordAggregation records an aggregation run.
func RecordAggregation(venue, status string) {
	DefaultMetrics.AggregationRuns.WithLabelValues(venue, status).Inc()
}

// RecordReport records a generated report.
func RecordReport() {
	DefaultMetrics.ReportsGenerated.Inc()
	DefaultMetrics.LastSuccessfulReport.SetToCurrentTime()
}
