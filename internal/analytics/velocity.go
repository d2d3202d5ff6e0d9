package analytics

import (
	"math"
	"time"

	"github.com/abhisek/lexiz/internal/store"
)

// Trend classifies week-over-week additions.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// VelocityReport measures learning pace over ISO weeks.
type VelocityReport struct {
	AddedThisWeek int
	AddedLastWeek int
	// MasteredThisWeek counts words that crossed the mastered threshold
	// during this week. Words mastered earlier and merely reviewed again
	// are not counted.
	MasteredThisWeek int
	MasteredTotal    int
	// RetentionRate is lifetime correct answers over lifetime attempts.
	RetentionRate float64
	// AvgEase averages the ease factor of words reviewed at least once.
	AvgEase float64
	Trend   Trend
}

// Velocity computes the report for the ISO week containing s.Now.
// MasteredThisWeek is read from s.Reviews, which must reach back to the
// start of the week.
func Velocity(s *Snapshot, cfg Config) (VelocityReport, error) {
	loc, err := cfg.location()
	if err != nil {
		return VelocityReport{}, err
	}
	thisWeek := startOfISOWeek(s.Now, loc)
	lastWeek := thisWeek.AddDate(0, 0, -7)
	weekly := wordActivity(s.Reviews, thisWeek)

	var (
		r                 VelocityReport
		correct, attempts int
		easeSum           float64
		reviewed          int
	)
	for _, w := range s.Words {
		switch {
		case !w.CreatedAt.Before(thisWeek):
			r.AddedThisWeek++
		case !w.CreatedAt.Before(lastWeek):
			r.AddedLastWeek++
		}

		if w.MasteryScore >= cfg.MasteredThreshold {
			r.MasteredTotal++
			if a, ok := weekly[w.ID]; ok && a.crossed(w, s.masteryOf, cfg.MasteredThreshold) {
				r.MasteredThisWeek++
			}
		}

		correct += w.CorrectCount
		attempts += w.Attempts()
		if w.Attempts() > 0 {
			reviewed++
			easeSum += w.EaseFactor
		}
	}

	if attempts > 0 {
		r.RetentionRate = float64(correct) / float64(attempts)
	}
	r.AvgEase = cfg.InitialEase
	if reviewed > 0 {
		r.AvgEase = math.Round(easeSum/float64(reviewed)*100) / 100
	}
	r.Trend = classifyTrend(r.AddedThisWeek, r.AddedLastWeek, cfg.TrendBand)
	return r, nil
}

// activity sums one word's reviews over a period.
type activity struct {
	correct int
	wrong   bool
}

func wordActivity(recs []store.ReviewRecord, since time.Time) map[string]activity {
	out := make(map[string]activity)
	for _, rec := range recs {
		if rec.Kind != store.ReviewKindWord || rec.Timestamp.Before(since) {
			continue
		}
		a := out[rec.SubjectID]
		if rec.Correct {
			a.correct++
		} else {
			a.wrong = true
		}
		out[rec.SubjectID] = a
	}
	return out
}

// crossed reports whether w, mastered now, was below threshold when the
// period began. A wrong answer in the period reset the streak to zero;
// otherwise the streak at the start is the current one less the period's
// correct answers.
func (a activity) crossed(w store.Word, masteryOf func(int) int, threshold int) bool {
	if a.wrong {
		return true
	}
	before := max(0, w.CorrectStreak-a.correct)
	return masteryOf(before) < threshold
}

// classifyTrend compares this week against last with a hysteresis band so
// small fluctuations read as stable.
func classifyTrend(this, last int, band float64) Trend {
	switch {
	case float64(this) > float64(last)*(1+band):
		return TrendImproving
	case float64(this) < float64(last)*(1-band):
		return TrendDeclining
	default:
		return TrendStable
	}
}
