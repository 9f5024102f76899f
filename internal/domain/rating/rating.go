// Package rating resolves a competition between two contenders and computes
// their updated rank and uncertainty.
package rating

import (
	"fmt"
	"math/rand"
	"sync"
)

// Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Params tunes the rank update.
type Params struct {
	// RankDecrement is subtracted from a contender's uncertainty after each competition.
	RankDecrement float64
	// MinUncertainty is the floor uncertainty decays towards.
	MinUncertainty float64
	// FallbackUncertainty is the swing factor for contenders without uncertainty.
	FallbackUncertainty float64
}

// DefaultParams returns the stock update parameters.
func DefaultParams() Params {
	return Params{
		RankDecrement:       0.002,
		MinUncertainty:      0.05,
		FallbackUncertainty: 0.10,
	}
}

// Outcome is the result of a competition. A and B keep the input order.
type Outcome struct {
	A        Contender
	B        Contender
	WinnerID string
	// Random is true when the engine drew the winner.
	Random bool
	// Upset is true when the strictly lower ranked contender won.
	Upset bool
}

// Winner returns the updated winning contender.
func (o Outcome) Winner() Contender {
	if o.A.ID == o.WinnerID {
		return o.A
	}
	return o.B
}

// Loser returns the updated losing contender.
func (o Outcome) Loser() Contender {
	if o.A.ID == o.WinnerID {
		return o.B
	}
	return o.A
}

// Engine resolves competitions. It holds no rating state; the random source
// is guarded so one engine can be shared between goroutines.
type Engine struct {
	params Params

	mu  sync.Mutex
	rng Source
}

// NewEngine creates an engine with default parameters and a seeded source.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		params: DefaultParams(),
		rng:    rand.New(rand.NewSource(42)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the engine's update parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Compete resolves a competition between a and b and returns both updated
// contenders in input order. If winnerID matches one of the ids it decides
// the outcome; otherwise the winner is drawn with probability proportional
// to rank. Inputs are never modified.
func (e *Engine) Compete(a, b Contender, winnerID string) (Outcome, error) {
	if err := a.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("first contender: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("second contender: %w", err)
	}

	pair := [2]Contender{a, b}

	// Equal ranks favor the second operand.
	fav, unf := 1, 0
	if a.Rank > b.Rank {
		fav, unf = 0, 1
	}

	win, random := -1, false
	switch winnerID {
	case a.ID:
		win = 0
	case b.ID:
		win = 1
	}
	if win < 0 {
		random = true
		win = fav
		if e.draw() >= pair[fav].Rank/(pair[fav].Rank+pair[unf].Rank) {
			win = unf
		}
	}

	out := Outcome{
		WinnerID: pair[win].ID,
		Random:   random,
		Upset:    win == unf && pair[unf].Rank < pair[fav].Rank,
	}
	var updated [2]Contender
	for i, c := range pair {
		opponent := pair[1-i]
		updated[i] = e.update(c, opponent.Rank, i == win)
	}
	out.A, out.B = updated[0], updated[1]
	return out, nil
}

// update applies the swing against the opponent's pre-update rank and decays
// the contender's uncertainty. A contender without uncertainty swings by the
// fallback and stays without one.
func (e *Engine) update(c Contender, opponentRank float64, won bool) Contender {
	u := e.params.FallbackUncertainty
	if c.HasUncertainty() {
		u = c.Uncertainty
		c.Uncertainty = e.decay(u)
	}

	swing := u * opponentRank
	if won {
		c.Rank += swing
		return c
	}
	if next := c.Rank - swing; next > 0 {
		c.Rank = next
	} else {
		c.Rank /= 2
	}
	return c
}

func (e *Engine) decay(u float64) float64 {
	if u > e.params.MinUncertainty+e.params.RankDecrement {
		return u - e.params.RankDecrement
	}
	return e.params.MinUncertainty
}

func (e *Engine) draw() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}
