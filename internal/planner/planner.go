// Package planner turns discovered candidates into the ordered list of days to fetch.
package planner

import (
	"sort"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/normalization"
)

// SkipReason explains why a candidate produced no task.
type SkipReason string

const (
	SkipNoDate          SkipReason = "no_date"
	SkipBadDate         SkipReason = "bad_date"
	SkipAlreadyIngested SkipReason = "already_ingested"
	SkipBeforeCutoff    SkipReason = "before_cutoff"
	SkipDuplicateDate   SkipReason = "duplicate_date"
)

// AllSkipReasons lists every reason, for metrics and reports.
var AllSkipReasons = []SkipReason{
	SkipNoDate, SkipBadDate, SkipAlreadyIngested, SkipBeforeCutoff, SkipDuplicateDate,
}

// Skip is a candidate that was dropped.
type Skip struct {
	Candidate domain.ReportCandidate
	Reason    SkipReason
}

// Review is a candidate whose title carries more than one plausible date.
// The first token is still planned; the entry is surfaced for a human to confirm.
type Review struct {
	Candidate domain.ReportCandidate
	Token     string
}

// Plan is the planner output.
type Plan struct {
	Tasks   []domain.FetchTask // date DESC, URL ASC for equal dates
	Skipped []Skip
	Review  []Review
}

// DateSet is an immutable snapshot of already-ingested dates.
type DateSet struct {
	dates map[domain.CalendarDate]struct{}
}

// NewDateSet builds a snapshot from dates.
func NewDateSet(dates ...domain.CalendarDate) DateSet {
	m := make(map[domain.CalendarDate]struct{}, len(dates))
	for _, d := range dates {
		m[d] = struct{}{}
	}
	return DateSet{dates: m}
}

// Contains reports whether d is in the set.
func (s DateSet) Contains(d domain.CalendarDate) bool {
	_, ok := s.dates[d]
	return ok
}

// Len returns the number of dates.
func (s DateSet) Len() int {
	return len(s.dates)
}

// BuildPlan decides which candidates become fetch tasks. Pure: the same inputs
// always produce the same plan, and no I/O is done.
//
// A candidate is dropped when its title has no date token, the token is not a
// valid date, the date is already ingested, or it is strictly before cutoff.
// A zero cutoff disables the cutoff check. Only one task is planned per date;
// when several candidates share a date the smallest URL wins.
func BuildPlan(candidates []domain.ReportCandidate, existing DateSet, cutoff domain.CalendarDate, defaultYear int) *Plan {
	plan := &Plan{}
	byDate := make(map[domain.CalendarDate]int)
	var planned []domain.ReportCandidate // parallel to plan.Tasks

	for _, c := range candidates {
		token, ambiguous, ok := normalization.ExtractDateToken(c.RawTitleText)
		if !ok {
			plan.Skipped = append(plan.Skipped, Skip{Candidate: c, Reason: SkipNoDate})
			continue
		}

		date, ok := normalization.NormalizeDate(token, defaultYear)
		if !ok {
			plan.Skipped = append(plan.Skipped, Skip{Candidate: c, Reason: SkipBadDate})
			continue
		}

		if existing.Contains(date) {
			plan.Skipped = append(plan.Skipped, Skip{Candidate: c, Reason: SkipAlreadyIngested})
			continue
		}

		if !cutoff.IsZero() && date.Before(cutoff) {
			plan.Skipped = append(plan.Skipped, Skip{Candidate: c, Reason: SkipBeforeCutoff})
			continue
		}

		if ambiguous {
			plan.Review = append(plan.Review, Review{Candidate: c, Token: token})
		}

		task := domain.FetchTask{URL: c.URL, Date: date}
		if i, seen := byDate[date]; seen {
			// Smallest URL wins so the result does not depend on candidate order.
			if task.URL < plan.Tasks[i].URL {
				plan.Skipped = append(plan.Skipped, Skip{Candidate: planned[i], Reason: SkipDuplicateDate})
				plan.Tasks[i] = task
				planned[i] = c
			} else {
				plan.Skipped = append(plan.Skipped, Skip{Candidate: c, Reason: SkipDuplicateDate})
			}
			continue
		}
		byDate[date] = len(plan.Tasks)
		plan.Tasks = append(plan.Tasks, task)
		planned = append(planned, c)
	}

	sort.SliceStable(plan.Tasks, func(i, j int) bool {
		a, b := plan.Tasks[i], plan.Tasks[j]
		if cmp := a.Date.Compare(b.Date); cmp != 0 {
			return cmp > 0
		}
		return a.URL < b.URL
	})

	return plan
}

// CountSkips tallies skipped candidates by reason.
func (p *Plan) CountSkips() map[SkipReason]int {
	counts := make(map[SkipReason]int)
	for _, s := range p.Skipped {
		counts[s.Reason]++
	}
	return counts
}
