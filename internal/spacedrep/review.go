package spacedrep

import (
	"fmt"
	"math"
	"time"

	"github.com/abhisek/lexiz/internal/store"
)

// Config tunes the SM-2 variant used for vocabulary reviews.
type Config struct {
	InitialEase float64 `mapstructure:"initial_ease"` // ease factor of a new word
	MinEase     float64 `mapstructure:"min_ease"`     // ease factor floor
	EaseBonus   float64 `mapstructure:"ease_bonus"`   // added on a correct review
	EasePenalty float64 `mapstructure:"ease_penalty"` // subtracted on a wrong review

	// SlowLatency marks a correct answer as hesitant. Hesitant answers gain
	// EaseBonus-SlowPenalty instead of EaseBonus. Zero disables the check.
	SlowLatency time.Duration `mapstructure:"slow_latency"`
	SlowPenalty float64       `mapstructure:"slow_penalty"`

	// RequiredStreak is the number of consecutive correct reviews needed
	// to reach MaxMastery.
	RequiredStreak int `mapstructure:"required_streak"`
	MaxMastery     int `mapstructure:"max_mastery"`
}

// DefaultConfig returns the standard scheduler settings.
func DefaultConfig() Config {
	return Config{
		InitialEase:    2.5,
		MinEase:        1.3,
		EaseBonus:      0.1,
		EasePenalty:    0.2,
		SlowLatency:    15 * time.Second,
		SlowPenalty:    0.05,
		RequiredStreak: 10,
		MaxMastery:     10,
	}
}

// ValidationError reports an input the scheduler refuses to apply.
// Nothing is mutated when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid review %s: %s", e.Field, e.Message)
}

// Outcome is one graded answer for a word.
type Outcome struct {
	Correct bool
	// Latency is the response time. Zero means unknown.
	Latency time.Duration
}

// Review applies one outcome to w at time now and returns the updated
// word. w itself is not modified. Counters, streak, ease, interval,
// mastery and both timestamps change together.
func Review(w store.Word, o Outcome, now time.Time, cfg Config) (store.Word, error) {
	if o.Latency < 0 {
		return w, &ValidationError{Field: "latency", Message: fmt.Sprintf("negative duration %s", o.Latency)}
	}
	if w.LastReviewedAt != nil && now.Before(*w.LastReviewedAt) {
		return w, &ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("%s precedes last review at %s", now.Format(time.RFC3339), w.LastReviewedAt.Format(time.RFC3339)),
		}
	}

	ease := w.EaseFactor
	if ease == 0 {
		ease = cfg.InitialEase
	}

	if o.Correct {
		w.CorrectCount++
		w.CorrectStreak++
		bonus := cfg.EaseBonus
		if cfg.SlowLatency > 0 && o.Latency > cfg.SlowLatency {
			bonus -= cfg.SlowPenalty
		}
		ease += bonus
	} else {
		w.WrongCount++
		w.CorrectStreak = 0
		ease -= cfg.EasePenalty
	}
	w.EaseFactor = roundEase(math.Max(cfg.MinEase, ease))

	w.IntervalDays = NextIntervalDays(w.CorrectStreak, w.IntervalDays, w.EaseFactor)
	w.MasteryScore = MasteryFromStreak(w.CorrectStreak, cfg.RequiredStreak, cfg.MaxMastery)

	reviewed := now
	next := now.AddDate(0, 0, w.IntervalDays)
	w.LastReviewedAt = &reviewed
	w.NextReviewAt = &next

	return w, nil
}

// roundEase drops float noise from repeated +-0.1 steps.
func roundEase(e float64) float64 {
	return math.Round(e*1000) / 1000
}
