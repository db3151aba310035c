package sqlite

import (
	"context"
	"fmt"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

// ReviewStore implements storage.ReviewStore using SQLite.
type ReviewStore struct {
	db *DB
}

// NewReviewStore creates a new ReviewStore.
func NewReviewStore(db *DB) *ReviewStore {
	return &ReviewStore{db: db}
}

// Compile-time interface check.
var _ storage.ReviewStore = (*ReviewStore)(nil)

// Flag records an item. Flagging the same (venue, url) again is a no-op.
func (s *ReviewStore) Flag(ctx context.Context, item *domain.ReviewItem) error {
	if item == nil || item.Venue == "" || item.URL == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_items (venue, url, title, token, reason, flagged_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (venue, url) DO NOTHING
	`, item.Venue, item.URL, item.Title, item.Token, item.Reason, item.FlaggedAt)
	if err != nil {
		return fmt.Errorf("insert review item: %w", err)
	}
	return nil
}

// GetByVenue retrieves flagged items for a venue, ordered by flagged_at ASC.
func (s *ReviewStore) GetByVenue(ctx context.Context, venue string) ([]*domain.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT venue, url, title, token, reason, flagged_at
		FROM review_items
		WHERE venue = ?
		ORDER BY flagged_at ASC, url ASC
	`, venue)
	if err != nil {
		return nil, fmt.Errorf("get review items: %w", err)
	}
	defer rows.Close()

	var result []*domain.ReviewItem
	for rows.Next() {
		var item domain.ReviewItem
		if err := rows.Scan(&item.Venue, &item.URL, &item.Title, &item.Token, &item.Reason, &item.FlaggedAt); err != nil {
			return nil, fmt.Errorf("scan review item row: %w", err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review item rows: %w", err)
	}
	return result, nil
}
