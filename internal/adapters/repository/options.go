package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithHistoryLimit caps how many results are kept; the oldest are dropped
// first. A value <= 0 keeps everything.
func WithHistoryLimit(n int) Option {
	return func(s *MemoryStore) {
		s.historyLimit = n
	}
}
