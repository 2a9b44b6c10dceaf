package service

import (
	"fmt"

	"github.com/okian/sailrank/internal/config"
)

// OptionsFromConfig translates process configuration into service options.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	ref, err := cfg.ReferenceSeasonID()
	if err != nil {
		return nil, fmt.Errorf("%w: reference_season: %w", config.ErrInvalidConfig, err)
	}
	opts := []Option{
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithInitialRating(cfg.InitialRating),
		WithPrimaryDivisionWeight(cfg.ADivisionWeight),
		WithDecayFactor(cfg.DecayFactor),
		WithEventTypeWeights(cfg.EventTypeWeights),
		WithDefaultEventWeight(cfg.DefaultEventWeight),
		WithReferenceSeason(ref),
	}
	if cfg.Store == config.StoreBolt {
		opts = append(opts, WithBoltPath(cfg.BoltPath))
	}
	return opts, nil
}
