package spacedrep

import "math"

// Interval ladder in days for the first two consecutive correct reviews.
// From the third on, the interval grows by the ease factor.
const (
	FirstIntervalDays  = 1
	SecondIntervalDays = 6
)

// NextIntervalDays returns the interval that follows a review.
// streak is the correct streak after the review has been counted, so 0
// means the review was wrong. prevDays is the interval that was scheduled
// before this review.
func NextIntervalDays(streak, prevDays int, ease float64) int {
	switch {
	case streak <= 1:
		return FirstIntervalDays
	case streak == 2:
		return SecondIntervalDays
	}
	if prevDays < SecondIntervalDays {
		// Imported or legacy rows can carry a streak without the matching
		// interval history. Resume the ladder from its second rung.
		prevDays = SecondIntervalDays
	}
	return int(math.Round(float64(prevDays) * ease))
}

// MasteryFromStreak maps a correct streak onto the 0..max mastery scale.
// It takes required consecutive correct reviews to reach max.
func MasteryFromStreak(streak, required, max int) int {
	if required <= 0 {
		required = 1
	}
	m := int(math.Round(float64(streak) * float64(max) / float64(required)))
	return clampInt(m, 0, max)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
