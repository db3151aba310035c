package domain

// DiscoveryStrategy selects how report links are found on a listing page.
type DiscoveryStrategy string

const (
	// StrategyNameScoped keeps anchors whose heading text names the venue.
	StrategyNameScoped DiscoveryStrategy = "name"
	// StrategyPatternScoped keeps anchors whose URL has a numeric-identifier path,
	// regardless of visible text. Over-inclusive; identity is verified later.
	StrategyPatternScoped DiscoveryStrategy = "pattern"
)

// String returns the string representation of DiscoveryStrategy.
func (s DiscoveryStrategy) String() string {
	return string(s)
}

// IsValid checks if the strategy is a known value.
func (s DiscoveryStrategy) IsValid() bool {
	return s == StrategyNameScoped || s == StrategyPatternScoped
}
