package config

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"

	"github.com/okian/tagrank/internal/domain/rating"
	"github.com/okian/tagrank/internal/domain/selection"
)

// Params returns the engine update parameters.
func (c *Config) Params() rating.Params {
	return rating.Params{
		RankDecrement:       c.RankDecrement,
		MinUncertainty:      c.MinUncertainty,
		FallbackUncertainty: c.FallbackUncertainty,
	}
}

// Defaults returns the state given to pairs that never competed.
func (c *Config) Defaults() selection.Defaults {
	return selection.Defaults{Rank: c.DefaultRank, Uncertainty: c.InitialUncertainty}
}

// NewRand returns a random source seeded with Seed, or with a
// crypto-random seed when Seed is zero.
func (c *Config) NewRand() *rand.Rand {
	seed := c.Seed
	if seed == 0 {
		var b [8]byte
		if _, err := crand.Read(b[:]); err == nil {
			seed = int64(binary.LittleEndian.Uint64(b[:]))
		}
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // ratings are not security sensitive
}
