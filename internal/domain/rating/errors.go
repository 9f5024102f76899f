package rating

import "errors"

// ErrInvalidCompetitor reports a contender that violates the engine contract.
// It is a caller error and never retried.
var ErrInvalidCompetitor = errors.New("invalid competitor")
