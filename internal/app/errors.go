package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrBackpressure means the competition queue is full; retry later.
	ErrBackpressure = errors.New("competition queue is full")
	// ErrNotStarted means asynchronous submission was used before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrStopped means Start was called after Stop.
	ErrStopped = errors.New("service stopped")
)
