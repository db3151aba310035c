package domain

// ReviewItem is a listing entry held back for manual review, typically a title
// carrying more than one plausible date token.
// Corresponds to review_items table.
type ReviewItem struct {
	Venue     string
	URL       string
	Title     string
	Token     string // date token the planner used
	Reason    string
	FlaggedAt int64 // ms
}
