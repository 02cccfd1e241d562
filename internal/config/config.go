// Package config loads process configuration from the environment. Every
// value has a default; nothing is strictly required, since the arena runs
// fine without an engine binary or a Redis archive.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	// EnginePath is the UCI engine binary. Empty means every AI game
	// uses the built-in search.
	EnginePath string

	// DifficultyFile optionally overrides the built-in profile table.
	DifficultyFile string

	// RedisURL enables the finished-game archive when set.
	RedisURL string

	GracePeriod     time.Duration
	Retention       time.Duration
	CleanupInterval time.Duration

	MaxConcurrentGames int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		GracePeriod:        5 * time.Minute,
		Retention:          24 * time.Hour,
		CleanupInterval:    time.Hour,
		MaxConcurrentGames: 200,
	}

	cfg.EnginePath = strings.TrimSpace(os.Getenv("ENGINE_PATH"))
	cfg.DifficultyFile = strings.TrimSpace(os.Getenv("ARENA_DIFFICULTY_FILE"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	if v := strings.TrimSpace(os.Getenv("ARENA_GRACE_PERIOD")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.GracePeriod = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_RETENTION")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Retention = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_CLEANUP_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CleanupInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_GAMES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentGames = n
		}
	}

	return cfg, nil
}
