package memory

import (
	"context"
	"sort"
	"sync"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu    sync.RWMutex
	units map[string][]*domain.UnitStat  // keyed by venue
	daily map[string][]*domain.DailyStat // keyed by venue
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		units: make(map[string][]*domain.UnitStat),
		daily: make(map[string][]*domain.DailyStat),
	}
}

// ReplaceUnitStats atomically replaces all unit stats of a venue.
func (s *SummaryStore) ReplaceUnitStats(_ context.Context, venue string, stats []*domain.UnitStat) error {
	if venue == "" {
		return storage.ErrInvalidInput
	}

	copied := make([]*domain.UnitStat, 0, len(stats))
	for _, st := range stats {
		if st == nil {
			return storage.ErrInvalidInput
		}
		c := *st
		c.Venue = venue
		copied = append(copied, &c)
	}
	sort.Slice(copied, func(i, j int) bool {
		return copied[i].UnitNumber < copied[j].UnitNumber
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[venue] = copied
	return nil
}

// ReplaceDailyStats atomically replaces all daily stats of a venue.
func (s *SummaryStore) ReplaceDailyStats(_ context.Context, venue string, stats []*domain.DailyStat) error {
	if venue == "" {
		return storage.ErrInvalidInput
	}

	copied := make([]*domain.DailyStat, 0, len(stats))
	for _, st := range stats {
		if st == nil {
			return storage.ErrInvalidInput
		}
		c := *st
		c.Venue = venue
		copied = append(copied, &c)
	}
	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Date.Before(copied[j].Date)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily[venue] = copied
	return nil
}

// GetUnitStats retrieves unit stats for a venue, ordered by unit_number ASC.
func (s *SummaryStore) GetUnitStats(_ context.Context, venue string) ([]*domain.UnitStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.UnitStat, 0, len(s.units[venue]))
	for _, st := range s.units[venue] {
		c := *st
		result = append(result, &c)
	}
	return result, nil
}

// GetDailyStats retrieves daily stats for a venue, ordered by date ASC.
func (s *SummaryStore) GetDailyStats(_ context.Context, venue string) ([]*domain.DailyStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DailyStat, 0, len(s.daily[venue]))
	for _, st := range s.daily[venue] {
		c := *st
		result = append(result, &c)
	}
	return result, nil
}

var _ storage.SummaryStore = (*SummaryStore)(nil)
