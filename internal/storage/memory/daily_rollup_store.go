package memory

import (
	"context"
	"sort"
	"sync"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// DailyRollupStore is an in-memory implementation of storage.DailyRollupStore.
type DailyRollupStore struct {
	mu   sync.RWMutex
	data map[rollupKey]*domain.DailyRollup
}

type rollupKey struct {
	venue string
	date  domain.CalendarDate
}

// NewDailyRollupStore creates a new in-memory daily rollup store.
func NewDailyRollupStore() *DailyRollupStore {
	return &DailyRollupStore{
		data: make(map[rollupKey]*domain.DailyRollup),
	}
}

// Append adds a rollup. Returns ErrDuplicateKey if (venue, date) exists.
func (s *DailyRollupStore) Append(_ context.Context, r *domain.DailyRollup) error {
	if r == nil || r.Venue == "" || r.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	key := rollupKey{venue: r.Venue, date: r.Date}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	c := *r
	s.data[key] = &c
	return nil
}

// GetDates returns every ingested date for a venue, ordered ASC.
func (s *DailyRollupStore) GetDates(_ context.Context, venue string) ([]domain.CalendarDate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var dates []domain.CalendarDate
	for key := range s.data {
		if key.venue == venue {
			dates = append(dates, key.date)
		}
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates, nil
}

// GetByVenue retrieves all rollups for a venue, ordered by date ASC.
func (s *DailyRollupStore) GetByVenue(_ context.Context, venue string) ([]*domain.DailyRollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyRollup
	for key, r := range s.data {
		if key.venue == venue {
			c := *r
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

var _ storage.DailyRollupStore = (*DailyRollupStore)(nil)
