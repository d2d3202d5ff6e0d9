package mastery

import "github.com/abhisek/lexiz/internal/store"

// ResolveLabel maps a progress record onto its display bucket.
// Topics never practiced are LabelNew regardless of score.
func ResolveLabel(p *store.TopicProgress, cfg Config) Label {
	switch {
	case p == nil || p.TimesPracticed == 0:
		return LabelNew
	case p.MasteryScore < cfg.WeakBelow:
		return LabelWeak
	case p.MasteryScore < cfg.StrongFrom:
		return LabelLearning
	default:
		return LabelStrong
	}
}

// Percent returns the score as a 0-100 percentage of the scale.
func Percent(score int, cfg Config) int {
	if cfg.MaxScore <= 0 {
		return 0
	}
	return clamp(score*100/cfg.MaxScore, 0, 100)
}
