package analytics

import (
	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/store"
)

// GroupStats summarizes the words sharing one attribute value.
type GroupStats struct {
	Key         string
	Count       int
	AvgMastery  float64
	FailureRate float64
}

// DifficultyReport breaks performance down by part of speech and by level.
// Groups appear in canonical order; empty groups are omitted. Hardest is
// empty when no group reaches MinGroupSize.
type DifficultyReport struct {
	ByPartOfSpeech []GroupStats
	ByLevel        []GroupStats
	HardestPOS     lang.PartOfSpeech
	HardestLevel   lang.Level
}

type accumulator struct {
	count, mastery, correct, wrong int
}

func (a *accumulator) add(w store.Word) {
	a.count++
	a.mastery += w.MasteryScore
	a.correct += w.CorrectCount
	a.wrong += w.WrongCount
}

func (a *accumulator) stats(key string) GroupStats {
	return GroupStats{
		Key:         key,
		Count:       a.count,
		AvgMastery:  float64(a.mastery) / float64(a.count),
		FailureRate: failureRate(a.correct, a.wrong),
	}
}

// Difficulty groups the snapshot and picks the group with the highest
// failure rate in each dimension. Ties go to the earlier group.
func Difficulty(s *Snapshot, cfg Config) DifficultyReport {
	byPOS := map[lang.PartOfSpeech]*accumulator{}
	byLevel := map[lang.Level]*accumulator{}
	for _, w := range s.Words {
		if byPOS[w.PartOfSpeech] == nil {
			byPOS[w.PartOfSpeech] = &accumulator{}
		}
		if byLevel[w.Level] == nil {
			byLevel[w.Level] = &accumulator{}
		}
		byPOS[w.PartOfSpeech].add(w)
		byLevel[w.Level].add(w)
	}

	var report DifficultyReport
	worst := -1.0
	for _, pos := range lang.AllPartsOfSpeech() {
		a, ok := byPOS[pos]
		if !ok {
			continue
		}
		g := a.stats(string(pos))
		report.ByPartOfSpeech = append(report.ByPartOfSpeech, g)
		if g.Count >= cfg.MinGroupSize && g.FailureRate > worst {
			worst = g.FailureRate
			report.HardestPOS = pos
		}
	}

	worst = -1.0
	for _, level := range lang.AllLevels() {
		a, ok := byLevel[level]
		if !ok {
			continue
		}
		g := a.stats(string(level))
		report.ByLevel = append(report.ByLevel, g)
		if g.Count >= cfg.MinGroupSize && g.FailureRate > worst {
			worst = g.FailureRate
			report.HardestLevel = level
		}
	}
	return report
}
