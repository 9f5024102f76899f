package model

import "errors"

// Sentinel kinds for malformed rating shapes. These allow errors.Is from callers.
var (
	ErrInvalidShape = errors.New("invalid shape")
	ErrMissingField = errors.New("missing field")
	ErrInvalidValue = errors.New("invalid value")
)
