// Package estimate fits a Bradley-Terry model to a tag's recorded results.
//
// The incremental engine only ever sees one competition at a time. Fitting
// the whole history at once gives an offline rating to compare against: the
// probability that i beats j is modelled as score[i] / (score[i] + score[j])
// and the scores are found with the minorization-maximization iteration.
package estimate

import (
	"math"
	"sort"

	"github.com/okian/tagrank/internal/domain/model"
)

const (
	// logisticScale maps a score ratio onto rating points so that a 10 point
	// gap is roughly a 1% difference in win rate.
	logisticScale = 250
	// DefaultIterations is the number of MM passes.
	DefaultIterations = 100
	// DefaultConfidence is the level used for the reported interval.
	DefaultConfidence = 0.95
)

// Match is one decided comparison.
type Match struct {
	WinnerID string
	LoserID  string
}

// FromResults converts applied results into matches.
func FromResults(results []model.Result) []Match {
	out := make([]Match, 0, len(results))
	for _, r := range results {
		loser := r.LoserID()
		if r.WinnerID == "" || loser == "" || loser == r.WinnerID {
			continue
		}
		out = append(out, Match{WinnerID: r.WinnerID, LoserID: loser})
	}
	return out
}

// Estimate is the fitted rating of one competitor.
type Estimate struct {
	CompetitorID string  `json:"competitor_id" yaml:"competitor_id"`
	Rating       float64 `json:"rating" yaml:"rating"`
	Interval     float64 `json:"interval" yaml:"interval"`
	Wins         int     `json:"wins" yaml:"wins"`
	Matches      int     `json:"matches" yaml:"matches"`
	score        float64
}

// Options tunes the fit.
type Options struct {
	Iterations int
	Confidence float64
}

type competitor struct {
	id       string
	score    float64
	wins     float64
	real     int
	realWins int
	beat     map[string]float64 // opponent -> wins against it
}

// Fit estimates ratings from matches. Every competitor starts with one
// virtual win and one virtual loss against every other competitor, which
// keeps scores finite for unbeaten or winless competitors. The result is
// ordered by rating, highest first, ties by id.
func Fit(matches []Match, opts Options) []Estimate {
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		opts.Confidence = DefaultConfidence
	}

	var cs []*competitor
	idx := make(map[string]*competitor)
	add := func(id string) *competitor {
		if c, ok := idx[id]; ok {
			return c
		}
		c := &competitor{id: id, score: 1, beat: make(map[string]float64)}
		idx[id] = c
		cs = append(cs, c)
		return c
	}
	for _, m := range matches {
		add(m.WinnerID)
		add(m.LoserID)
	}

	for _, c := range cs {
		c.wins = float64(len(cs) - 1)
		for _, o := range cs {
			if o.id != c.id {
				c.beat[o.id] = 1
			}
		}
	}
	for _, m := range matches {
		w, l := idx[m.WinnerID], idx[m.LoserID]
		w.wins++
		w.beat[l.id]++
		w.real++
		w.realWins++
		l.real++
	}

	for it := 0; it < opts.Iterations; it++ {
		for _, c := range cs {
			denom := 0.0
			for _, o := range cs {
				if o.id == c.id {
					continue
				}
				denom += (c.beat[o.id] + o.beat[c.id]) / (c.score + o.score)
			}
			if denom > 0 {
				c.score = c.wins / denom
			}
		}
	}

	z := math.Erfinv(2*opts.Confidence - 1)
	out := make([]Estimate, 0, len(cs))
	for _, c := range cs {
		e := Estimate{
			CompetitorID: c.id,
			Rating:       logisticScale * math.Log(c.score),
			Wins:         c.realWins,
			Matches:      c.real,
			score:        c.score,
		}
		if c.real > 0 {
			e.Interval = logisticScale * math.Pi * math.Sqrt(2.0/3) / math.Sqrt(float64(c.real)) * z
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].CompetitorID < out[j].CompetitorID
	})
	return out
}

// WinProbability returns the fitted probability that a beats b.
func WinProbability(a, b Estimate) float64 {
	if a.score+b.score == 0 {
		return 0.5
	}
	return a.score / (a.score + b.score)
}
