package domain

import "time"

// DefaultPoliteDelay is the pause before every report fetch for a venue.
const DefaultPoliteDelay = 2 * time.Second

// Venue is one tracked hall as configured by the operator.
type Venue struct {
	ID          string            // stable identifier, stored with every record
	DisplayName string            // distinguishing substring of the hall's name
	ListingURL  string            // page listing the per-day reports
	Strategy    DiscoveryStrategy // how report links are found on the listing
	Cutoff      CalendarDate      // days before this are never ingested; zero disables
	PoliteDelay time.Duration     // pause before each report fetch
}
