package rating

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/tagrank/internal/domain/model"
)

// Contender is the minimal view of a competitor the engine depends on: a
// non-empty id, a positive rank and an optional uncertainty. An Uncertainty
// outside (0, 1] is treated as absent.
type Contender struct {
	ID          string
	Rank        float64
	Uncertainty float64
}

// HasUncertainty reports whether the contender carries a usable uncertainty.
func (c Contender) HasUncertainty() bool {
	return model.ValidUncertainty(c.Uncertainty)
}

// Validate checks the contender contract.
func (c Contender) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: %w: id must not be empty", ErrInvalidCompetitor, model.ErrInvalidShape)
	}
	if !(c.Rank > 0) || math.IsInf(c.Rank, 1) {
		return fmt.Errorf("%w: %w: rank must be greater than 0, got %v", ErrInvalidCompetitor, model.ErrInvalidValue, c.Rank)
	}
	return nil
}

// ToMap converts the contender to a plain mapping with id, rank and, when
// present, uncertainty.
func (c Contender) ToMap() map[string]any {
	out := map[string]any{model.KeyID: c.ID, model.KeyRank: c.Rank}
	if c.HasUncertainty() {
		out[model.KeyUncertainty] = c.Uncertainty
	}
	return out
}

// ParseContender builds a contender from a plain mapping. Any violation of the
// contract is reported as ErrInvalidCompetitor wrapping the model error kind.
func ParseContender(v any) (Contender, error) {
	if err := model.Validate(v); err != nil {
		return Contender{}, fmt.Errorf("%w: %w", ErrInvalidCompetitor, err)
	}
	m := v.(map[string]any) // shape checked by Validate
	id, _ := model.ID(m[model.KeyID])
	rank, _ := model.Number(m[model.KeyRank])
	c := Contender{ID: id, Rank: rank}
	if u, ok := model.Number(m[model.KeyUncertainty]); ok && model.ValidUncertainty(u) {
		c.Uncertainty = u
	}
	return c, nil
}
