package mastery

import "fmt"

// Config defines the mastery scale, the per-outcome step sizes and the
// weak-topic sampling floor.
type Config struct {
	MaxScore int `mapstructure:"max_score"` // top of the 0..MaxScore scale
	Gain     int `mapstructure:"gain"`      // added on a correct outcome
	Loss     int `mapstructure:"loss"`      // subtracted on a wrong outcome

	// FloorWeight is added to every topic's sampling weight so that
	// fully mastered topics keep a non-zero chance of selection.
	FloorWeight float64 `mapstructure:"floor_weight"`

	// Display thresholds.
	WeakBelow  int `mapstructure:"weak_below"`
	StrongFrom int `mapstructure:"strong_from"`
}

// DefaultConfig returns the 0-1000 scale used for grammar topics.
func DefaultConfig() Config {
	return Config{
		MaxScore:    1000,
		Gain:        100,
		Loss:        60,
		FloorWeight: 50,
		WeakBelow:   400,
		StrongFrom:  800,
	}
}

// Validate rejects configurations where one outcome could cross the
// whole scale.
func (c Config) Validate() error {
	if c.MaxScore <= 0 {
		return fmt.Errorf("mastery max score must be positive, got %d", c.MaxScore)
	}
	if c.Gain <= 0 || c.Gain >= c.MaxScore {
		return fmt.Errorf("mastery gain must be in (0, %d), got %d", c.MaxScore, c.Gain)
	}
	if c.Loss <= 0 || c.Loss >= c.MaxScore {
		return fmt.Errorf("mastery loss must be in (0, %d), got %d", c.MaxScore, c.Loss)
	}
	if c.FloorWeight <= 0 {
		return fmt.Errorf("mastery floor weight must be positive, got %v", c.FloorWeight)
	}
	return nil
}

// NextScore applies one outcome to score.
func NextScore(score int, correct bool, cfg Config) int {
	if correct {
		score += cfg.Gain
	} else {
		score -= cfg.Loss
	}
	return clamp(score, 0, cfg.MaxScore)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
