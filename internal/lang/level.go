package lang

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency level.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// AllLevels returns all levels from easiest to hardest.
func AllLevels() []Level {
	return []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}
}

// Valid reports whether l is a known CEFR level.
func (l Level) Valid() bool {
	for _, known := range AllLevels() {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLevel accepts "a1", " B2 " and similar spellings.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown CEFR level %q", s)
	}
	return l, nil
}
