package memory

import (
	"context"
	"sort"
	"sync"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// ReviewStore is an in-memory implementation of storage.ReviewStore.
type ReviewStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReviewItem // keyed by venue|url
}

// NewReviewStore creates a new in-memory review store.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{
		data: make(map[string]*domain.ReviewItem),
	}
}

// Flag records an item. Flagging the same (venue, url) again is a no-op.
func (s *ReviewStore) Flag(_ context.Context, item *domain.ReviewItem) error {
	if item == nil || item.Venue == "" || item.URL == "" {
		return storage.ErrInvalidInput
	}

	key := item.Venue + "|" + item.URL

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return nil
	}
	c := *item
	s.data[key] = &c
	return nil
}

// GetByVenue retrieves flagged items for a venue, ordered by flagged_at ASC.
func (s *ReviewStore) GetByVenue(_ context.Context, venue string) ([]*domain.ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReviewItem
	for _, item := range s.data {
		if item.Venue == venue {
			c := *item
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].FlaggedAt != result[j].FlaggedAt {
			return result[i].FlaggedAt < result[j].FlaggedAt
		}
		return result[i].URL < result[j].URL
	})
	return result, nil
}

var _ storage.ReviewStore = (*ReviewStore)(nil)

// NewStores returns a fresh set of in-memory stores.
func NewStores() storage.Stores {
	return storage.Stores{
		Records: NewUnitRecordStore(),
		Rollups: NewDailyRollupStore(),
		Summary: NewSummaryStore(),
		Reviews: NewReviewStore(),
	}
}
