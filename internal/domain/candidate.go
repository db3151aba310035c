package domain

// ReportCandidate is a link discovered on a listing page that may lead to a
// per-day report. Ephemeral: never persisted.
type ReportCandidate struct {
	URL          string // absolute, fragment-free
	RawTitleText string // visible text the planner extracts a date from
}

// FetchTask is a report page still owed for ingestion.
type FetchTask struct {
	URL  string
	Date CalendarDate
}
