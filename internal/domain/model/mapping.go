package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mapping keys used when records travel to and from a store as plain maps.
const (
	KeyID           = "id"
	KeyName         = "name"
	KeyRank         = "rank"
	KeyUncertainty  = "uncertainty"
	KeyTagID        = "tag_id"
	KeyCompetitorID = "competitor_id"
)

// Validate checks that v is a competitor-shaped mapping: a non-empty id and a
// positive numeric rank.
func Validate(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: expected a mapping, got %T", ErrInvalidShape, v)
	}
	raw, ok := m[KeyID]
	if !ok {
		return fmt.Errorf("%w: id is required", ErrInvalidShape)
	}
	if _, ok := ID(raw); !ok {
		return fmt.Errorf("%w: id must not be empty", ErrInvalidShape)
	}
	rawRank, ok := m[KeyRank]
	if !ok {
		return fmt.Errorf("%w: rank is required", ErrMissingField)
	}
	_, err := positiveRank(rawRank)
	return err
}

// Validate checks the record invariants that make it safe to persist.
func (r RatingRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.TagID) == "":
		return fmt.Errorf("%w: tag_id is required", ErrInvalidShape)
	case strings.TrimSpace(r.CompetitorID) == "":
		return fmt.Errorf("%w: competitor_id is required", ErrInvalidShape)
	}
	_, err := positiveRank(r.Rank)
	return err
}

// ToMap converts the tag to a plain mapping.
func (t Tag) ToMap() map[string]any {
	return map[string]any{KeyID: t.ID, KeyName: t.Name}
}

// TagFromMap builds a Tag from a plain mapping.
func TagFromMap(m map[string]any) (Tag, error) {
	id, ok := ID(m[KeyID])
	if !ok {
		return Tag{}, fmt.Errorf("%w: tag id is required", ErrInvalidShape)
	}
	name, _ := m[KeyName].(string)
	return Tag{ID: id, Name: name}, nil
}

// ToMap converts the competitor to a plain mapping. Rank and uncertainty are
// only included when set.
func (c Competitor) ToMap() map[string]any {
	out := map[string]any{KeyID: c.ID, KeyName: c.Name}
	if c.Rank > 0 {
		out[KeyRank] = c.Rank
	}
	if ValidUncertainty(c.Uncertainty) {
		out[KeyUncertainty] = c.Uncertainty
	}
	return out
}

// CompetitorFromMap builds a Competitor from a plain mapping. A rank, when
// present, must be positive; an unusable uncertainty is dropped.
func CompetitorFromMap(m map[string]any) (Competitor, error) {
	id, ok := ID(m[KeyID])
	if !ok {
		return Competitor{}, fmt.Errorf("%w: competitor id is required", ErrInvalidShape)
	}
	c := Competitor{ID: id}
	c.Name, _ = m[KeyName].(string)
	if raw, ok := m[KeyRank]; ok {
		rank, err := positiveRank(raw)
		if err != nil {
			return Competitor{}, err
		}
		c.Rank = rank
	}
	c.Uncertainty = uncertaintyOf(m[KeyUncertainty])
	return c, nil
}

// ToMap converts the record to a plain mapping; uncertainty is omitted when absent.
func (r RatingRecord) ToMap() map[string]any {
	out := map[string]any{
		KeyTagID:        r.TagID,
		KeyCompetitorID: r.CompetitorID,
		KeyRank:         r.Rank,
	}
	if r.HasUncertainty() {
		out[KeyUncertainty] = r.Uncertainty
	}
	return out
}

// RatingRecordFromMap builds a RatingRecord from a plain mapping. A null,
// non-numeric or out-of-range uncertainty is read as absent.
func RatingRecordFromMap(m map[string]any) (RatingRecord, error) {
	tagID, ok := ID(m[KeyTagID])
	if !ok {
		return RatingRecord{}, fmt.Errorf("%w: tag_id is required", ErrInvalidShape)
	}
	compID, ok := ID(m[KeyCompetitorID])
	if !ok {
		return RatingRecord{}, fmt.Errorf("%w: competitor_id is required", ErrInvalidShape)
	}
	raw, ok := m[KeyRank]
	if !ok {
		return RatingRecord{}, fmt.Errorf("%w: rank is required", ErrMissingField)
	}
	rank, err := positiveRank(raw)
	if err != nil {
		return RatingRecord{}, err
	}
	return RatingRecord{
		TagID:        tagID,
		CompetitorID: compID,
		Rank:         rank,
		Uncertainty:  uncertaintyOf(m[KeyUncertainty]),
	}, nil
}

// ID normalises an identifier value. Strings are trimmed; integers are
// formatted in base 10. Empty strings and zero integers are not identifiers.
func ID(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case int:
		return strconv.Itoa(x), x != 0
	case int32:
		return strconv.FormatInt(int64(x), 10), x != 0
	case int64:
		return strconv.FormatInt(x, 10), x != 0
	case uint:
		return strconv.FormatUint(uint64(x), 10), x != 0
	case uint32:
		return strconv.FormatUint(uint64(x), 10), x != 0
	case uint64:
		return strconv.FormatUint(x, 10), x != 0
	case float64:
		if x == 0 || x != math.Trunc(x) {
			return "", false
		}
		return strconv.FormatInt(int64(x), 10), true
	default:
		return "", false
	}
}

// Number converts a numeric value to float64.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

func positiveRank(v any) (float64, error) {
	rank, ok := Number(v)
	if !ok {
		return 0, fmt.Errorf("%w: rank must be numeric, got %T", ErrInvalidValue, v)
	}
	if !(rank > 0) || math.IsInf(rank, 1) {
		return 0, fmt.Errorf("%w: rank must be greater than 0, got %v", ErrInvalidValue, rank)
	}
	return rank, nil
}

func uncertaintyOf(v any) float64 {
	u, ok := Number(v)
	if !ok || !ValidUncertainty(u) {
		return 0
	}
	return u
}
