package service

import (
	"math/rand"

	"github.com/okian/tagrank/internal/adapters/repository"
	"github.com/okian/tagrank/internal/domain/rating"
	"github.com/okian/tagrank/internal/domain/selection"
	"github.com/okian/tagrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of workers applying queued competitions.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the competition queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many competition ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the backing store. The service does not close a store it
// was given.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRand sets the random source shared by pair selection and the engine.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) {
		if r != nil {
			s.rng = &lockedRand{r: r}
		}
	}
}

// WithDefaults sets the rating state of pairs that have never competed.
func WithDefaults(d selection.Defaults) Option {
	return func(s *Service) {
		if d.Rank > 0 && d.Uncertainty > 0 && d.Uncertainty <= 1 {
			s.defaults = d
		}
	}
}

// WithParams sets the engine's update parameters.
func WithParams(p rating.Params) Option {
	return func(s *Service) {
		s.params = p
	}
}
