package memory

import (
	"context"
	"sort"
	"sync"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// UnitRecordStore is an in-memory implementation of storage.UnitRecordStore.
type UnitRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.UnitRecord // keyed by record_id
}

// NewUnitRecordStore creates a new in-memory unit record store.
func NewUnitRecordStore() *UnitRecordStore {
	return &UnitRecordStore{
		data: make(map[string]*domain.UnitRecord),
	}
}

// AppendBulk appends records, skipping existing record IDs. Validation happens
// before any write so an invalid batch leaves the store untouched.
func (s *UnitRecordStore) AppendBulk(_ context.Context, records []*domain.UnitRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	for _, r := range records {
		if r == nil || r.RecordID == "" || r.Venue == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, r := range records {
		if _, exists := s.data[r.RecordID]; exists {
			continue
		}
		s.data[r.RecordID] = copyRecord(r)
		inserted++
	}

	return inserted, nil
}

// GetByVenue retrieves all records for a venue, ordered by (date ASC, row_index ASC).
func (s *UnitRecordStore) GetByVenue(_ context.Context, venue string) ([]*domain.UnitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.UnitRecord
	for _, r := range s.data {
		if r.Venue == venue {
			result = append(result, copyRecord(r))
		}
	}

	sortRecords(result)
	return result, nil
}

// GetByVenueDate retrieves one day's records ordered by row_index ASC.
func (s *UnitRecordStore) GetByVenueDate(_ context.Context, venue string, date domain.CalendarDate) ([]*domain.UnitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.UnitRecord
	for _, r := range s.data {
		if r.Venue == venue && r.Date == date {
			result = append(result, copyRecord(r))
		}
	}

	sortRecords(result)
	return result, nil
}

// Len returns the number of stored records.
func (s *UnitRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copyRecord(r *domain.UnitRecord) *domain.UnitRecord {
	c := *r
	if r.UnitNumber != nil {
		n := *r.UnitNumber
		c.UnitNumber = &n
	}
	return &c
}

func sortRecords(records []*domain.UnitRecord) {
	sort.Slice(records, func(i, j int) bool {
		if cmp := records[i].Date.Compare(records[j].Date); cmp != 0 {
			return cmp < 0
		}
		return records[i].RowIndex < records[j].RowIndex
	})
}

var _ storage.UnitRecordStore = (*UnitRecordStore)(nil)
