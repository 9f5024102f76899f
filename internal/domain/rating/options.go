package rating

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRand sets the random source used to resolve undecided competitions.
func WithRand(src Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.rng = src
		}
	}
}

// WithParams replaces all update parameters at once. Invalid fields keep
// their defaults.
func WithParams(p Params) Option {
	return func(e *Engine) {
		WithRankDecrement(p.RankDecrement)(e)
		WithMinUncertainty(p.MinUncertainty)(e)
		WithFallbackUncertainty(p.FallbackUncertainty)(e)
	}
}

// WithRankDecrement sets how much uncertainty drops per competition.
func WithRankDecrement(d float64) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.params.RankDecrement = d
		}
	}
}

// WithMinUncertainty sets the uncertainty floor.
func WithMinUncertainty(m float64) Option {
	return func(e *Engine) {
		if m > 0 && m <= 1 {
			e.params.MinUncertainty = m
		}
	}
}

// WithFallbackUncertainty sets the uncertainty used for contenders that carry none.
func WithFallbackUncertainty(u float64) Option {
	return func(e *Engine) {
		if u > 0 && u <= 1 {
			e.params.FallbackUncertainty = u
		}
	}
}
