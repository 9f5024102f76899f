// Package model contains domain models passed between layers.
package model

import "time"

// Defaults applied to a (tag, competitor) pair that has never competed.
const (
	DefaultRank        = 1500.0
	DefaultUncertainty = 0.15
)

// Tag identifies a comparison category.
type Tag struct {
	ID   string // externally assigned, uniqueness is assumed not enforced
	Name string // display name
}

// Competitor is an entity being ranked. Rank and Uncertainty hold the
// per-tag rating state when the competitor is viewed under a tag; a zero
// Uncertainty means the competitor carries no uncertainty.
type Competitor struct {
	ID          string
	Name        string
	Rank        float64
	Uncertainty float64
}

// RatingRecord is the persisted (tag, competitor) -> (rank, uncertainty) state.
type RatingRecord struct {
	TagID        string
	CompetitorID string
	Rank         float64
	Uncertainty  float64 // 0 when absent
}

// HasUncertainty reports whether the record carries a usable uncertainty.
func (r RatingRecord) HasUncertainty() bool {
	return ValidUncertainty(r.Uncertainty)
}

// ValidUncertainty reports whether u lies in (0, 1].
func ValidUncertainty(u float64) bool {
	return u > 0 && u <= 1
}

// Competition is a request to compare two competitors under a tag.
type Competition struct {
	ID          string    // idempotency key
	TagID       string    // category the pair is compared under
	CompetitorA string    // first operand
	CompetitorB string    // second operand
	WinnerID    string    // requested winner; empty lets the engine decide
	TS          time.Time // submission time
}

// Result is the applied outcome of a competition, kept as history.
type Result struct {
	CompetitionID string
	TagID         string
	A             RatingRecord // updated state of CompetitorA
	B             RatingRecord // updated state of CompetitorB
	WinnerID      string
	Random        bool // winner drawn by the engine
	Upset         bool // lower-rated competitor won
	TS            time.Time
}

// LoserID returns the id of the competitor that did not win.
func (r Result) LoserID() string {
	if r.WinnerID == r.A.CompetitorID {
		return r.B.CompetitorID
	}
	return r.A.CompetitorID
}
