// Package loadgen drives a running tagrank server over HTTP: it asks for
// matchups, posts competitions from a pool of workers and reads back the
// resulting leaderboards.
package loadgen

import (
	"errors"
	"fmt"
	"time"
)

// Winner selection modes.
const (
	ModeRandom  = "random"  // winner left empty, the engine draws it
	ModeFavored = "favored" // higher-ranked side wins with FavoredProbability
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid loadgen config")

// Config holds configuration for a load run.
type Config struct {
	BaseURL            string        // Base URL of the service
	Competitions       int           // Number of competitions to submit
	Workers            int           // Concurrent submitters
	Tags               int           // Tags to create before the run; 0 keeps the catalog as is
	Competitors        int           // Competitors to create before the run
	Mode               string        // ModeRandom or ModeFavored
	FavoredProbability float64       // Chance the favored side wins in ModeFavored
	TopN               int           // Leaderboard entries to read back per tag
	Timeout            time.Duration // HTTP request timeout
	Settle             time.Duration // How long to wait for the queue to drain
	Seed               int64         // Seed for winner decisions
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Competitions < 1:
		return fmt.Errorf("%w: competitions must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Tags < 0 || c.Competitors < 0:
		return fmt.Errorf("%w: seed counts must not be negative", ErrInvalidConfig)
	case c.Tags > 0 && c.Competitors < 2:
		return fmt.Errorf("%w: at least two competitors are needed", ErrInvalidConfig)
	case c.Mode != ModeRandom && c.Mode != ModeFavored:
		return fmt.Errorf("%w: mode must be %q or %q", ErrInvalidConfig, ModeRandom, ModeFavored)
	case c.FavoredProbability < 0 || c.FavoredProbability > 1:
		return fmt.Errorf("%w: favored probability must be within [0,1]", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrInvalidConfig)
	}
	return nil
}

type named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type competitor struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Rank float64 `json:"rank"`
}

type matchup struct {
	Tag named      `json:"tag"`
	A   competitor `json:"a"`
	B   competitor `json:"b"`
}

type competitionRequest struct {
	TagID       string `json:"tag_id"`
	CompetitorA string `json:"competitor_a"`
	CompetitorB string `json:"competitor_b"`
	WinnerID    string `json:"winner_id,omitempty"`
}

type ack struct {
	Status        string `json:"status"`
	CompetitionID string `json:"competition_id"`
	Duplicate     bool   `json:"duplicate"`
}

// Entry is one leaderboard row as served by the API.
type Entry struct {
	Position     int     `json:"position"`
	CompetitorID string  `json:"competitor_id"`
	Name         string  `json:"name"`
	Rank         float64 `json:"rank"`
	Uncertainty  float64 `json:"uncertainty"`
}

// Stats holds run statistics.
type Stats struct {
	Submitted    int
	Accepted     int
	Duplicate    int
	Backpressure int
	Failed       int
	Favored      int // favored side picked as winner
	Leaderboards map[string][]Entry
	StartTime    time.Time
	Duration     time.Duration
}
