package selection

import "errors"

var (
	// ErrEmptyInput means there is nothing to select from.
	ErrEmptyInput = errors.New("empty input")
	// ErrCorruptState means the store broke the one-record-per-pair invariant.
	// It is fatal and must be surfaced, never retried.
	ErrCorruptState = errors.New("corrupt state")
)
