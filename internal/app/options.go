package service

import (
	"github.com/okian/sailrank/internal/adapters/repository"
	"github.com/okian/sailrank/internal/domain/season"
	"github.com/okian/sailrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission IDs are remembered.
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

// WithStore injects a store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithBoltPath makes Start open a bolt store at path instead of the
// in-memory store.
func WithBoltPath(path string) Option {
	return func(s *Service) {
		s.boltPath = path
	}
}

// WithInitialRating sets the rating new participants start from.
func WithInitialRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.initialRating = r
		}
	}
}

// WithPrimaryDivisionWeight sets the weight of division "A".
func WithPrimaryDivisionWeight(w float64) Option {
	return func(s *Service) {
		if w > 0 {
			s.primaryDivisionWeight = w
		}
	}
}

// WithDecayFactor sets the inactivity decay multiplier.
func WithDecayFactor(f float64) Option {
	return func(s *Service) {
		if f > 0 && f <= 1 {
			s.decayFactor = f
		}
	}
}

// WithEventTypeWeights maps event types to the weight given to events of
// that type when a submission carries none.
func WithEventTypeWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.eventTypeWeights = weights
	}
}

// WithDefaultEventWeight sets the weight of events whose type has none.
func WithDefaultEventWeight(w float64) Option {
	return func(s *Service) {
		if w > 0 {
			s.defaultEventWeight = w
		}
	}
}

// WithReferenceSeason pins the reference season instead of deriving it from
// the clock.
func WithReferenceSeason(ref season.ID) Option {
	return func(s *Service) {
		s.referenceSeason = ref
	}
}

// WithClock sets the clock used to derive the current season.
func WithClock(clock season.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}
