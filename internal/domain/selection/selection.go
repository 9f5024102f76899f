// Package selection picks a tag and two distinct competitors to compare and
// resolves their current rating state from a store snapshot.
package selection

import (
	"fmt"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/rating"
)

// Source yields uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Defaults is the rating state of a (tag, competitor) pair with no record.
type Defaults struct {
	Rank        float64
	Uncertainty float64
}

// DefaultDefaults returns rank 1500 and uncertainty 0.15.
func DefaultDefaults() Defaults {
	return Defaults{Rank: model.DefaultRank, Uncertainty: model.DefaultUncertainty}
}

// Pairing is a selected tag with two distinct competitors carrying their
// per-tag rating state.
type Pairing struct {
	Tag model.Tag
	A   model.Competitor
	B   model.Competitor
}

// Contenders returns the engine-facing views of both competitors.
func (p Pairing) Contenders() (rating.Contender, rating.Contender) {
	return contender(p.A), contender(p.B)
}

func contender(c model.Competitor) rating.Contender {
	return rating.Contender{ID: c.ID, Rank: c.Rank, Uncertainty: c.Uncertainty}
}

// SelectPair draws one tag uniformly, then two distinct competitors
// uniformly. The second draw is repeated until it differs from the first.
func SelectPair(tags []model.Tag, competitors []model.Competitor, records []model.RatingRecord, rng Source, d Defaults) (Pairing, error) {
	if len(tags) == 0 {
		return Pairing{}, fmt.Errorf("%w: no tags", ErrEmptyInput)
	}
	if len(competitors) == 0 {
		return Pairing{}, fmt.Errorf("%w: no competitors", ErrEmptyInput)
	}
	if !distinct(competitors) {
		return Pairing{}, fmt.Errorf("%w: need two distinct competitors", ErrEmptyInput)
	}

	tag := tags[rng.Intn(len(tags))]
	first := competitors[rng.Intn(len(competitors))]
	second := competitors[rng.Intn(len(competitors))]
	for second.ID == first.ID {
		second = competitors[rng.Intn(len(competitors))]
	}

	a, err := Lookup(tag.ID, first, records, d)
	if err != nil {
		return Pairing{}, err
	}
	b, err := Lookup(tag.ID, second, records, d)
	if err != nil {
		return Pairing{}, err
	}
	return Pairing{Tag: tag, A: a, B: b}, nil
}

// Lookup returns c with the rating state recorded for it under tagID. With
// no record the defaults apply; more than one record is ErrCorruptState.
func Lookup(tagID string, c model.Competitor, records []model.RatingRecord, d Defaults) (model.Competitor, error) {
	var found []model.RatingRecord
	for _, r := range records {
		if r.TagID == tagID && r.CompetitorID == c.ID {
			found = append(found, r)
		}
	}
	return Resolve(tagID, c, found, d)
}

// Resolve applies the record rules to the records already matched for
// (tagID, c). Callers that query the store per pair use it directly.
func Resolve(tagID string, c model.Competitor, found []model.RatingRecord, d Defaults) (model.Competitor, error) {
	switch len(found) {
	case 0:
		c.Rank, c.Uncertainty = d.Rank, d.Uncertainty
		return c, nil
	case 1:
		r := found[0]
		if !(r.Rank > 0) {
			return model.Competitor{}, fmt.Errorf("%w: tag %s competitor %s has rank %v", ErrCorruptState, tagID, c.ID, r.Rank)
		}
		c.Rank, c.Uncertainty = r.Rank, 0
		if r.HasUncertainty() {
			c.Uncertainty = r.Uncertainty
		}
		return c, nil
	default:
		return model.Competitor{}, fmt.Errorf("%w: tag %s competitor %s has %d rating records", ErrCorruptState, tagID, c.ID, len(found))
	}
}

func distinct(competitors []model.Competitor) bool {
	for _, c := range competitors[1:] {
		if c.ID != competitors[0].ID {
			return true
		}
	}
	return false
}
