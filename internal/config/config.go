// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/season"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the storage backend: memory or bolt.
	Store string `koanf:"store"`

	// BoltPath is the database file used by the bolt store.
	BoltPath string `koanf:"bolt_path"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many submission IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ReferenceSeason pins the season ratings are evaluated against, e.g.
	// "f24". Empty means the season of the current date.
	ReferenceSeason string `koanf:"reference_season"`

	// InitialRating is the rating of new participants.
	InitialRating float64 `koanf:"initial_rating"`

	// ADivisionWeight weights results in division "A".
	ADivisionWeight float64 `koanf:"a_division_weight"`

	// DecayFactor multiplies the rating of participants inactive in the
	// reference season.
	DecayFactor float64 `koanf:"decay_factor"`

	// EventTypeWeights maps event types to their importance weight.
	EventTypeWeights map[string]float64 `koanf:"event_type_weights"`

	// DefaultEventWeight is used for event types without a weight.
	DefaultEventWeight float64 `koanf:"default_event_weight"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Store:               StoreMemory,
		BoltPath:            "sailrank.db",
		QueueSize:           1024,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 500,
		InitialRating:       model.InitialRating,
		ADivisionWeight:     1.2,
		DecayFactor:         0.97,
		EventTypeWeights:    map[string]float64{},
		DefaultEventWeight:  model.DefaultEventWeight,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StoreBolt:
		return fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StoreBolt, c.Store)
	case c.Store == StoreBolt && strings.TrimSpace(c.BoltPath) == "":
		return fmt.Errorf("%w: bolt_path must be set for the bolt store", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.InitialRating <= 0:
		return fmt.Errorf("%w: initial_rating must be positive", ErrInvalidConfig)
	case c.ADivisionWeight <= 0:
		return fmt.Errorf("%w: a_division_weight must be positive", ErrInvalidConfig)
	case c.DecayFactor <= 0 || c.DecayFactor > 1:
		return fmt.Errorf("%w: decay_factor must be in (0, 1]", ErrInvalidConfig)
	case c.DefaultEventWeight <= 0:
		return fmt.Errorf("%w: default_event_weight must be positive", ErrInvalidConfig)
	}
	for name, w := range c.EventTypeWeights {
		if w <= 0 {
			return fmt.Errorf("%w: event_type_weights[%s] must be positive", ErrInvalidConfig, name)
		}
	}
	if _, err := c.ReferenceSeasonID(); err != nil {
		return fmt.Errorf("%w: reference_season: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ReferenceSeasonID parses ReferenceSeason. An empty value yields the zero
// ID, which means "derive from the clock".
func (c *Config) ReferenceSeasonID() (season.ID, error) {
	s := strings.TrimSpace(c.ReferenceSeason)
	if s == "" {
		return season.ID{}, nil
	}
	return season.Parse(strings.ToLower(s))
}
