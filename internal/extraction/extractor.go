package extraction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/fetch"
	"hall-data-lab/internal/verification"
)

// DefaultSettle is the wait after load before report values are read.
const DefaultSettle = 5 * time.Second

// ErrMalformedPage is returned when fetched HTML cannot be parsed.
var ErrMalformedPage = errors.New("malformed report page")

// Extraction is a verified report page.
type Extraction struct {
	Task          domain.FetchTask
	Rows          []domain.RawRow
	ConfirmedDate string // date token shown on the page, "" if none
	Identity      string // identity field that matched the venue
}

// Options configures an Extractor.
type Options struct {
	Source        fetch.PageSource
	Verifier      *verification.Verifier
	Layout        ColumnLayout
	HeaderKeyword string
	DetailQuery   string        // query forcing the full-detail view, e.g. "view=all"
	Settle        time.Duration // 0 uses DefaultSettle; negative disables
	Logger        *log.Logger
}

// Extractor fetches, verifies and parses one report page per task.
type Extractor struct {
	source        fetch.PageSource
	verifier      *verification.Verifier
	layout        ColumnLayout
	headerKeyword string
	detailQuery   string
	settle        time.Duration
	logger        *log.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	settle := opts.Settle
	if settle == 0 {
		settle = DefaultSettle
	}
	if settle < 0 {
		settle = 0
	}
	layout := opts.Layout
	if layout == (ColumnLayout{}) {
		layout = DefaultColumnLayout()
	}
	return &Extractor{
		source:        opts.Source,
		verifier:      opts.Verifier,
		layout:        layout,
		headerKeyword: opts.HeaderKeyword,
		detailQuery:   opts.DetailQuery,
		settle:        settle,
		logger:        logger,
	}
}

// Extract fetches the task's report page in full-detail view and returns its rows.
// Returns an error wrapping verification.ErrIdentityMismatch or ErrDateMismatch when
// the page is not the expected venue's report for the task date; the caller abandons
// the task.
func (e *Extractor) Extract(ctx context.Context, task domain.FetchTask) (*Extraction, error) {
	pageURL, err := fetch.WithDetailQuery(task.URL, e.detailQuery)
	if err != nil {
		return nil, err
	}

	html, err := e.source.FetchRendered(ctx, pageURL, fetch.FetchOptions{Settle: e.settle})
	if err != nil {
		return nil, fmt.Errorf("fetch report %s: %w", task.Date, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPage, task.URL, err)
	}

	identity, err := e.verifier.VerifyIdentity(doc)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", task.URL, err)
	}

	confirmed := e.verifier.ConfirmedDate(doc)
	if err := e.verifier.VerifyDate(confirmed, task); err != nil {
		return nil, fmt.Errorf("verify %s: %w", task.URL, err)
	}

	rows := ParseRows(doc, e.layout, e.headerKeyword)
	e.logger.Printf("Extracted %d rows for %s from %s", len(rows), task.Date, task.URL)

	return &Extraction{
		Task:          task,
		Rows:          rows,
		ConfirmedDate: confirmed,
		Identity:      identity,
	}, nil
}
