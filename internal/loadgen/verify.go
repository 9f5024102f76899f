package loadgen

import (
	"errors"
	"fmt"
)

// ErrInconsistent reports a leaderboard that breaks ordering rules.
var ErrInconsistent = errors.New("inconsistent leaderboard")

// verifyLeaderboard checks rank DESC, competitor id ASC ordering and dense
// positions starting at 1.
func verifyLeaderboard(entries []Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Position != 1 {
				return fmt.Errorf("%w: first position is %d", ErrInconsistent, e.Position)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Rank > prev.Rank:
			return fmt.Errorf("%w: entry %d ranks above entry %d", ErrInconsistent, i, i-1)
		case e.Rank == prev.Rank && e.CompetitorID <= prev.CompetitorID:
			return fmt.Errorf("%w: tie at entry %d not ordered by id", ErrInconsistent, i)
		case e.Rank == prev.Rank && e.Position != prev.Position:
			return fmt.Errorf("%w: tied entries %d and %d hold different positions", ErrInconsistent, i-1, i)
		case e.Rank < prev.Rank && e.Position != prev.Position+1:
			return fmt.Errorf("%w: position gap at entry %d", ErrInconsistent, i)
		}
	}
	return nil
}
