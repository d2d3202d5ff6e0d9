package progress

import (
	"fmt"
	"time"
)

// Config holds the thresholds and window sizes of the progress report.
type Config struct {
	// MasteredThreshold is the word mastery score counted as mastered.
	MasteredThreshold int `mapstructure:"mastered_threshold"`
	// LevelUpWords is how many mastered words at a level move the learner
	// past it.
	LevelUpWords int `mapstructure:"level_up_words"`

	ActivityDays int `mapstructure:"activity_days"`
	// StreakWindowDays bounds how far back the study streak is traced.
	StreakWindowDays int `mapstructure:"streak_window_days"`

	RecentWords    int `mapstructure:"recent_words"`
	RecentMistakes int `mapstructure:"recent_mistakes"`
	WeakAreas      int `mapstructure:"weak_areas"`

	// Timezone decides where days start. Empty means UTC.
	Timezone string `mapstructure:"timezone"`
}

// DefaultConfig returns the standard report settings.
func DefaultConfig() Config {
	return Config{
		MasteredThreshold: 7,
		LevelUpWords:      10,
		ActivityDays:      14,
		StreakWindowDays:  365,
		RecentWords:       10,
		RecentMistakes:    10,
		WeakAreas:         3,
	}
}

// Validate checks the config for values the report cannot work with.
func (c Config) Validate() error {
	if c.LevelUpWords < 1 {
		return fmt.Errorf("progress: level_up_words must be at least 1")
	}
	if c.ActivityDays < 1 {
		return fmt.Errorf("progress: activity_days must be at least 1")
	}
	if c.StreakWindowDays < c.ActivityDays {
		return fmt.Errorf("progress: streak_window_days must cover activity_days")
	}
	if _, err := c.location(); err != nil {
		return err
	}
	return nil
}

func (c Config) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("progress: timezone: %w", err)
	}
	return loc, nil
}
