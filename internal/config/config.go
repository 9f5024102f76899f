// Package config defines process configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite file. Empty keeps state in memory.
	DBPath string `koanf:"db_path"`

	// QueueSize bounds the in-memory competition queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of workers applying competitions.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many competition ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Seed seeds the random source. Zero picks a random seed.
	Seed int64 `koanf:"seed"`

	// AutoplaySchedule is a cron spec for unattended random competitions.
	AutoplaySchedule string `koanf:"autoplay_schedule"`

	// DefaultRank and InitialUncertainty seed pairs that never competed.
	DefaultRank        float64 `koanf:"default_rank"`
	InitialUncertainty float64 `koanf:"initial_uncertainty"`

	// Engine update parameters.
	FallbackUncertainty float64 `koanf:"fallback_uncertainty"`
	RankDecrement       float64 `koanf:"rank_decrement"`
	MinUncertainty      float64 `koanf:"min_uncertainty"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		MaxLeaderboardLimit: 100,
		DefaultRank:         1500,
		InitialUncertainty:  0.15,
		FallbackUncertainty: 0.10,
		RankDecrement:       0.002,
		MinUncertainty:      0.05,
	}
}

// Validate reports the first invalid field wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DefaultRank <= 0:
		return fmt.Errorf("%w: default_rank must be positive", ErrInvalidConfig)
	case !unit(c.InitialUncertainty):
		return fmt.Errorf("%w: initial_uncertainty must be in (0, 1]", ErrInvalidConfig)
	case !unit(c.FallbackUncertainty):
		return fmt.Errorf("%w: fallback_uncertainty must be in (0, 1]", ErrInvalidConfig)
	case c.RankDecrement < 0:
		return fmt.Errorf("%w: rank_decrement must not be negative", ErrInvalidConfig)
	case !unit(c.MinUncertainty):
		return fmt.Errorf("%w: min_uncertainty must be in (0, 1]", ErrInvalidConfig)
	}
	return nil
}

func unit(v float64) bool { return v > 0 && v <= 1 }
