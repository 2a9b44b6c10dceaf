package rating

import (
	"github.com/okian/sailrank/internal/domain/season"
	"github.com/okian/sailrank/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the clock used when a call passes a zero reference season.
func WithClock(clock season.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithInitialRating sets the rating restored by RecalculateAll.
func WithInitialRating(r float64) Option {
	return func(e *Engine) {
		if r > 0 {
			e.initialRating = r
		}
	}
}

// WithPrimaryDivisionWeight sets the weight of division "A".
func WithPrimaryDivisionWeight(w float64) Option {
	return func(e *Engine) {
		if w > 0 {
			e.primaryDivisionWeight = w
		}
	}
}

// WithDecayFactor sets the multiplier applied to inactive participants.
func WithDecayFactor(f float64) Option {
	return func(e *Engine) {
		if f > 0 && f <= 1 {
			e.decayFactor = f
		}
	}
}
