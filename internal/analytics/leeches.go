package analytics

import (
	"sort"

	"github.com/abhisek/lexiz/internal/store"
)

// Leech is a word that keeps failing despite repeated practice.
type Leech struct {
	Word        store.Word
	Attempts    int
	FailureRate float64
}

// LeechReport lists leeches worst first. Total counts every leech even
// when Leeches is truncated by the limit.
type LeechReport struct {
	Leeches     []Leech
	Total       int
	MinAttempts int
	Threshold   float64
}

// Leeches flags words with at least LeechMinAttempts reviews and a failure
// rate at or above LeechThreshold.
func Leeches(s *Snapshot, cfg Config) LeechReport {
	report := LeechReport{MinAttempts: cfg.LeechMinAttempts, Threshold: cfg.LeechThreshold}
	for _, w := range s.Words {
		attempts := w.Attempts()
		if attempts < cfg.LeechMinAttempts {
			continue
		}
		rate := failureRate(w.CorrectCount, w.WrongCount)
		if rate < cfg.LeechThreshold {
			continue
		}
		report.Leeches = append(report.Leeches, Leech{Word: w, Attempts: attempts, FailureRate: rate})
	}

	sort.Slice(report.Leeches, func(i, j int) bool {
		a, b := report.Leeches[i], report.Leeches[j]
		if a.FailureRate != b.FailureRate {
			return a.FailureRate > b.FailureRate
		}
		if a.Word.WrongCount != b.Word.WrongCount {
			return a.Word.WrongCount > b.Word.WrongCount
		}
		return a.Word.ID < b.Word.ID
	})

	report.Total = len(report.Leeches)
	if cfg.LeechLimit > 0 && len(report.Leeches) > cfg.LeechLimit {
		report.Leeches = report.Leeches[:cfg.LeechLimit]
	}
	return report
}
