// Package pipeline turns a venue's ingested history into report files.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/metrics"
	"hall-data-lab/internal/observability"
	"hall-data-lab/internal/reporting"
	"hall-data-lab/internal/storage"
)

// GeneratorVersion is recorded in every report for reproducibility.
const GeneratorVersion = "1.0.0"

// Data sources recorded in the reproducibility section.
const (
	DataSourceDB       = "db"
	DataSourceFixtures = "fixtures"
)

// VenueInput selects one venue to report on.
type VenueInput struct {
	Venue  string
	Filter metrics.Filter
}

// VenueOutput is the report written for one venue.
type VenueOutput struct {
	Venue  string
	Report *reporting.Report
	Files  []string // paths written, in write order
}

// ReportPipeline aggregates each venue's history, stores the summary tables and
// writes REPORT_<venue>.md, <venue>_units.csv and <venue>_daily.csv.
type ReportPipeline struct {
	records     storage.UnitRecordStore
	aggregator  *metrics.Aggregator
	reportGen   *reporting.Generator
	sufficiency SufficiencyThresholds
	outputDir   string
	dataSource  string
	clock       func() time.Time
	logger      *log.Logger
}

// NewReportPipeline creates a new pipeline writing into outputDir.
func NewReportPipeline(stores storage.Stores, th metrics.Thresholds, outputDir string, logger *log.Logger) *ReportPipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &ReportPipeline{
		records:     stores.Records,
		aggregator:  metrics.NewAggregator(stores.Records, stores.Summary, th, logger),
		reportGen:   reporting.NewGenerator(stores.Rollups, stores.Summary, stores.Reviews),
		sufficiency: DefaultSufficiencyThresholds(),
		outputDir:   outputDir,
		dataSource:  DataSourceDB,
		clock:       func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *ReportPipeline) WithClock(clock func() time.Time) *ReportPipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithDataSource sets the data source recorded in reports.
func (p *ReportPipeline) WithDataSource(source string) *ReportPipeline {
	p.dataSource = source
	return p
}

// WithSufficiency overrides the data sufficiency thresholds.
func (p *ReportPipeline) WithSufficiency(th SufficiencyThresholds) *ReportPipeline {
	p.sufficiency = th
	return p
}

// Run reports on every venue. A venue's failure does not stop the others; all
// failures are returned joined.
func (p *ReportPipeline) Run(ctx context.Context, venues []VenueInput) ([]*VenueOutput, error) {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var (
		outputs []*VenueOutput
		errs    []error
	)
	for _, v := range venues {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		out, err := p.RunVenue(ctx, v)
		if err != nil {
			p.logger.Printf("Report for %s failed: %v", v.Venue, err)
			errs = append(errs, fmt.Errorf("%s: %w", v.Venue, err))
			continue
		}
		outputs = append(outputs, out)
	}
	return outputs, errors.Join(errs...)
}

// RunVenue aggregates one venue and writes its report files. A venue without
// records still gets a report stating so.
func (p *ReportPipeline) RunVenue(ctx context.Context, in VenueInput) (*VenueOutput, error) {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	res, err := p.aggregator.ComputeAndStore(ctx, in.Venue, in.Filter)
	if err != nil && !errors.Is(err, metrics.ErrNoRecords) {
		return nil, err
	}

	records, err := p.records.GetByVenue(ctx, in.Venue)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	report, err := p.reportGen.Generate(ctx, in.Venue, in.Filter, res)
	if err != nil {
		return nil, err
	}
	report.DataQuality = CheckSufficiency(report, p.sufficiency)
	report.Reproducibility = reporting.ReproducibilityMetadata{
		GeneratorVersion: GeneratorVersion,
		DataVersion:      computeDataVersion(records),
		DataSource:       p.dataSource,
	}

	name := fileSafe(in.Venue)
	files := []struct {
		name    string
		content string
	}{
		{"REPORT_" + name + ".md", reporting.RenderMarkdown(report)},
		{name + "_units.csv", reporting.RenderUnitCSV(report.UnitStats)},
		{name + "_daily.csv", reporting.RenderDailyCSV(report.DailyStats)},
	}

	out := &VenueOutput{Venue: in.Venue, Report: report}
	for _, f := range files {
		path := filepath.Join(p.outputDir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		out.Files = append(out.Files, path)
	}

	observability.RecordReport()
	p.logger.Printf("Wrote report for %s: %d days, %d units, data version %s",
		in.Venue, report.Coverage.Days, len(report.UnitStats), report.Reproducibility.DataVersion)
	return out, nil
}

// computeDataVersion hashes record ids and values, so any change to the venue's
// history changes the version.
func computeDataVersion(records []*domain.UnitRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, fmt.Sprintf("%s|%d|%d", r.RecordID, r.PayoutDiff, r.PlayCount))
	}
	sort.Strings(parts)

	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// fileSafe maps a venue id onto a file name fragment.
func fileSafe(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
