package analytics

import (
	"fmt"
	"time"
)

// Config holds the report thresholds.
type Config struct {
	LeechMinAttempts int     `mapstructure:"leech_min_attempts"`
	LeechThreshold   float64 `mapstructure:"leech_threshold"`
	LeechLimit       int     `mapstructure:"leech_limit"` // 0 = no limit

	ForecastDays int `mapstructure:"forecast_days"`

	// MasteredThreshold is the word mastery score counted as mastered.
	MasteredThreshold int `mapstructure:"mastered_threshold"`
	// TrendBand is the relative change in weekly additions below which the
	// trend stays stable.
	TrendBand float64 `mapstructure:"trend_band"`
	// InitialEase is reported as the average ease when nothing was reviewed.
	InitialEase float64 `mapstructure:"initial_ease"`

	MinGroupSize int `mapstructure:"min_group_size"`

	// Timezone decides where days and weeks start. Empty means UTC.
	Timezone string `mapstructure:"timezone"`
}

// DefaultConfig returns the standard report settings.
func DefaultConfig() Config {
	return Config{
		LeechMinAttempts:  5,
		LeechThreshold:    0.4,
		LeechLimit:        20,
		ForecastDays:      7,
		MasteredThreshold: 7,
		TrendBand:         0.10,
		InitialEase:       2.5,
		MinGroupSize:      5,
	}
}

// Validate checks the config for values the reports cannot work with.
func (c Config) Validate() error {
	if c.LeechMinAttempts < 1 {
		return fmt.Errorf("analytics: leech_min_attempts must be at least 1")
	}
	if c.LeechThreshold < 0 || c.LeechThreshold > 1 {
		return fmt.Errorf("analytics: leech_threshold must be within [0, 1]")
	}
	if c.ForecastDays < 1 {
		return fmt.Errorf("analytics: forecast_days must be at least 1")
	}
	if c.TrendBand < 0 {
		return fmt.Errorf("analytics: trend_band must not be negative")
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
		return nil, fmt.Errorf("analytics: timezone: %w", err)
	}
	return loc, nil
}
