package exercise

import (
	"fmt"
	"time"
)

// Config bounds batch sizes and external call time.
type Config struct {
	MinCount int `mapstructure:"min_count"`
	MaxCount int `mapstructure:"max_count"`

	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	EvaluateTimeout time.Duration `mapstructure:"evaluate_timeout"`

	// SettledMemory is how many settled batch ids are remembered per owner
	// to reject resubmissions.
	SettledMemory int `mapstructure:"settled_memory"`
}

// DefaultConfig returns the standard bounds.
func DefaultConfig() Config {
	return Config{
		MinCount:        3,
		MaxCount:        20,
		GenerateTimeout: 90 * time.Second,
		EvaluateTimeout: 60 * time.Second,
		SettledMemory:   16,
	}
}

// Validate checks the configured bounds.
func (c Config) Validate() error {
	if c.MinCount < 1 || c.MaxCount < c.MinCount {
		return fmt.Errorf("exercise count bounds [%d, %d] are invalid", c.MinCount, c.MaxCount)
	}
	if c.GenerateTimeout <= 0 || c.EvaluateTimeout <= 0 {
		return fmt.Errorf("exercise timeouts must be positive")
	}
	return nil
}
