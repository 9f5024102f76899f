// Package types contains common types used across the application
package types

// Entry is a leaderboard row for one competitor under a tag.
// Position is dense: equal ranks share a position and the next distinct
// rank takes the next position.
type Entry struct {
	Position     int     `json:"position" yaml:"position"`
	CompetitorID string  `json:"competitor_id" yaml:"competitor_id"`
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	Rank         float64 `json:"rank" yaml:"rank"`
	Uncertainty  float64 `json:"uncertainty,omitempty" yaml:"uncertainty,omitempty"`
}

// Counts summarises what a store holds.
type Counts struct {
	Tags        int `json:"tags" yaml:"tags"`
	Competitors int `json:"competitors" yaml:"competitors"`
	Records     int `json:"records" yaml:"records"`
	Results     int `json:"results" yaml:"results"`
}

// AssignPositions sets dense positions on entries sorted by rank descending,
// starting at 1.
func AssignPositions(entries []Entry) {
	pos := 0
	for i := range entries {
		if i == 0 || entries[i].Rank != entries[i-1].Rank {
			pos++
		}
		entries[i].Position = pos
	}
}
