// Package verification guards ingestion against pages that belong to another venue
// or another day. The identity check is the only gate between pattern-scoped discovery,
// which is deliberately over-inclusive, and the append-only store.
package verification

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/normalization"
)

// Sentinel errors.
var (
	// ErrIdentityMismatch is returned when no identity field names the expected venue.
	ErrIdentityMismatch = errors.New("page identity does not match venue")
	// ErrDateMismatch is returned when the page shows a date other than the task date.
	ErrDateMismatch = errors.New("page date does not match task date")
)

// DefaultIdentitySelectors are read in addition to <title> and the meta tags.
var DefaultIdentitySelectors = []string{"h1", ".store-name", ".hall-name"}

// DefaultDateSelectors are scanned, in order, for the date a report page claims to show.
var DefaultDateSelectors = []string{"title", "h1", "h2", "time"}

// Verifier checks a fetched report page against the venue and day it was fetched for.
type Verifier struct {
	VenueName         string   // distinguishing substring of the venue's display name
	IdentitySelectors []string // extra elements whose text may carry the venue name
	DateSelectors     []string // elements scanned for the page date
	DefaultYear       int      // year assumed for "M/D" page dates
}

// NewVerifier creates a Verifier with default selectors.
func NewVerifier(venueName string, defaultYear int) *Verifier {
	return &Verifier{
		VenueName:         venueName,
		IdentitySelectors: DefaultIdentitySelectors,
		DateSelectors:     DefaultDateSelectors,
		DefaultYear:       defaultYear,
	}
}

// IdentityFields returns the non-empty identity texts of doc: <title>, og:title,
// meta description, then the configured selectors.
func (v *Verifier) IdentityFields(doc *goquery.Document) []string {
	var fields []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			fields = append(fields, s)
		}
	}

	add(doc.Find("title").First().Text())
	if c, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		add(c)
	}
	if c, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		add(c)
	}
	for _, sel := range v.IdentitySelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			add(s.Text())
		})
	}
	return fields
}

// VerifyIdentity returns the first identity field containing the venue name.
// Returns ErrIdentityMismatch if none does.
func (v *Verifier) VerifyIdentity(doc *goquery.Document) (string, error) {
	if v.VenueName == "" {
		return "", fmt.Errorf("%w: no venue name configured", ErrIdentityMismatch)
	}
	fields := v.IdentityFields(doc)
	for _, f := range fields {
		if strings.Contains(f, v.VenueName) {
			return f, nil
		}
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: page has no identity fields", ErrIdentityMismatch)
	}
	return "", fmt.Errorf("%w: %q not in %q", ErrIdentityMismatch, v.VenueName, fields[0])
}

// ConfirmedDate returns the first date token shown by the date selectors, or "".
func (v *Verifier) ConfirmedDate(doc *goquery.Document) string {
	for _, sel := range v.DateSelectors {
		var token string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t, _, ok := normalization.ExtractDateToken(s.Text()); ok {
				token = t
				return false
			}
			return true
		})
		if token != "" {
			return token
		}
	}
	return ""
}

// VerifyDate fails with ErrDateMismatch when confirmed parses to a date other than
// the task's. An empty or unparseable confirmed date is accepted: the day was
// already fixed by the listing title.
func (v *Verifier) VerifyDate(confirmed string, task domain.FetchTask) error {
	if confirmed == "" {
		return nil
	}
	year := v.DefaultYear
	if year == 0 {
		year = task.Date.Year
	}
	d, ok := normalization.NormalizeDate(confirmed, year)
	if !ok {
		return nil
	}
	if !d.Equal(task.Date) {
		return fmt.Errorf("%w: page shows %s, task is %s", ErrDateMismatch, d, task.Date)
	}
	return nil
}
