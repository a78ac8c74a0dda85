package models

// The external scoring pipeline writes a ScoringResult JSON blob back onto
// each response row it picks up. These types mirror that vendor payload; the
// assessment core never produces one itself.

// CategoryScore is a vendor-produced percentile for one ability category.
type CategoryScore struct {
	Category   string  `json:"category"`
	Percentile float64 `json:"percentile"`
}

// MoveDetail describes one observable "move" the vendor looks for in a
// response, with population frequency for rarity statistics.
type MoveDetail struct {
	Name       string  `json:"name"`
	Present    bool    `json:"present"`
	Applicable bool    `json:"applicable"`
	Impressive bool    `json:"impressive"`
	Gap        bool    `json:"gap"`
	Frequency  float64 `json:"frequency"` // share of population demonstrating the move, (0,1]
}

// ScoringResult is the full vendor payload for one scored response.
type ScoringResult struct {
	CategoryScores []CategoryScore `json:"category_scores"`
	MoveDetails    []MoveDetail    `json:"move_details"`
}
