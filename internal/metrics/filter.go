// Package metrics computes per-unit and per-date statistics from ingested history.
package metrics

import (
	"strconv"
	"strings"

	"hall-data-lab/internal/domain"
)

// Defaults for Filter.
const (
	DefaultMaxUnitNumber = 4000
	DefaultSummaryGlyphs = "合計平均総"
)

// Filter configures the cleaning stages run before statistics are computed.
type Filter struct {
	VenueSubstring string // kept rows' venue contains this; "" keeps all
	ModelSubstring string // kept rows' model name contains this; "" keeps all
	SummaryGlyphs  string // a unit label containing any of these is a summary row
	MaxUnitNumber  int    // unit numbers above this are mis-parsed aggregate rows
}

// WithDefaults fills unset fields.
func (f Filter) WithDefaults() Filter {
	if f.SummaryGlyphs == "" {
		f.SummaryGlyphs = DefaultSummaryGlyphs
	}
	if f.MaxUnitNumber <= 0 {
		f.MaxUnitNumber = DefaultMaxUnitNumber
	}
	return f
}

// FilterBySubstrings keeps records whose venue and model name contain the given
// substrings. Empty substrings match everything.
func FilterBySubstrings(records []*domain.UnitRecord, venueSub, modelSub string) []*domain.UnitRecord {
	out := make([]*domain.UnitRecord, 0, len(records))
	for _, r := range records {
		if !strings.Contains(r.Venue, venueSub) || !strings.Contains(r.ModelName, modelSub) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DropSummaryRows removes records whose unit label contains any glyph in glyphs,
// such as a "合計" totals row.
func DropSummaryRows(records []*domain.UnitRecord, glyphs string) []*domain.UnitRecord {
	out := make([]*domain.UnitRecord, 0, len(records))
	for _, r := range records {
		if glyphs != "" && strings.ContainsAny(r.UnitLabel, glyphs) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// KeepUnitRange keeps records whose unit label is all digits with a value in
// (0, maxUnit], returning copies with UnitNumber set.
func KeepUnitRange(records []*domain.UnitRecord, maxUnit int) []*domain.UnitRecord {
	out := make([]*domain.UnitRecord, 0, len(records))
	for _, r := range records {
		n, ok := parseUnitNumber(r.UnitLabel)
		if !ok || n <= 0 || n > maxUnit {
			continue
		}
		c := *r
		c.UnitNumber = &n
		out = append(out, &c)
	}
	return out
}

func parseUnitNumber(label string) (int, bool) {
	if label == "" {
		return 0, false
	}
	for _, c := range label {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(label)
	if err != nil {
		return 0, false
	}
	return n, true
}

type dateUnit struct {
	date domain.CalendarDate
	unit int
}

// DedupByDateUnit keeps the first record per (date, unit number). Records without
// a unit number are dropped.
func DedupByDateUnit(records []*domain.UnitRecord) []*domain.UnitRecord {
	seen := make(map[dateUnit]struct{}, len(records))
	out := make([]*domain.UnitRecord, 0, len(records))
	for _, r := range records {
		if r.UnitNumber == nil {
			continue
		}
		k := dateUnit{date: r.Date, unit: *r.UnitNumber}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Funnel counts the records surviving each cleaning stage.
type Funnel struct {
	Input          int
	AfterSubstring int
	AfterSummary   int
	AfterRange     int
	AfterDedup     int
}

// Clean runs every stage in order and reports the funnel.
func Clean(records []*domain.UnitRecord, f Filter) ([]*domain.UnitRecord, Funnel) {
	f = f.WithDefaults()
	fn := Funnel{Input: len(records)}

	out := FilterBySubstrings(records, f.VenueSubstring, f.ModelSubstring)
	fn.AfterSubstring = len(out)

	out = DropSummaryRows(out, f.SummaryGlyphs)
	fn.AfterSummary = len(out)

	out = KeepUnitRange(out, f.MaxUnitNumber)
	fn.AfterRange = len(out)

	out = DedupByDateUnit(out)
	fn.AfterDedup = len(out)

	return out, fn
}
