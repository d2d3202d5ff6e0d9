package progress

import (
	"sort"
	"time"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/mastery"
	"github.com/abhisek/lexiz/internal/store"
)

// Inputs is everything one report is computed from.
type Inputs struct {
	Owner  string
	Now    time.Time
	Words  []store.Word
	Topics []mastery.TopicStatus
	Tally  []store.OutcomeTally
	// Recent holds the reviews inside the streak window, in sequence order.
	Recent []store.ReviewRecord
}

// Report is the learner's overall standing.
type Report struct {
	Owner      string
	At         time.Time
	Summary    Summary
	Vocabulary Vocabulary
	Topics     TopicStats
	Activity   Activity
	Errors     ErrorPatterns
}

type Summary struct {
	TotalWords     int
	MasteredWords  int
	DueToday       int
	TotalExercises int
	TotalErrors    int
	StreakDays     int
	Level          lang.Level
}

type LevelCount struct {
	Level lang.Level
	Count int
}

// RecentWord is a recently added vocabulary item.
type RecentWord struct {
	Target       string
	Native       string
	MasteryScore int
}

type Vocabulary struct {
	ByLevel  []LevelCount // levels without words are left out
	New      int
	Learning int
	Mastered int
	Recent   []RecentWord // newest first
}

type TopicStats struct {
	Total     int
	Practiced int
	Strong    int
	Statuses  []mastery.TopicStatus
}

// DayActivity counts the reviews of one local calendar day.
type DayActivity struct {
	Date    time.Time
	Reviews int
	Correct int
}

type Activity struct {
	Days         []DayActivity // oldest first, today last
	WordReviews  int
	TopicReviews int
}

type CategoryCount struct {
	Category lang.ErrorCategory
	Count    int
}

// WeakArea is one of the most frequent error categories with a hint on
// what to practice.
type WeakArea struct {
	Category   lang.ErrorCategory
	Count      int
	Suggestion string
}

// Mistake is one wrong answer from the recent history.
type Mistake struct {
	At       time.Time
	Kind     store.ReviewKind
	Subject  string
	Category lang.ErrorCategory
}

type ErrorPatterns struct {
	ByCategory []CategoryCount // most frequent first
	WeakAreas  []WeakArea
	Recent     []Mistake // newest first
}

var suggestions = map[lang.ErrorCategory]string{
	lang.ErrCase:            "Drill noun declension: pick a few nouns and run them through all seven cases.",
	lang.ErrGenderAgreement: "Pair adjectives with nouns of each gender and check the endings agree.",
	lang.ErrVerbConjugation: "Conjugate common verbs across persons in present and past tense.",
	lang.ErrWordOrder:       "Watch clitic placement; short pronouns and auxiliaries go second.",
	lang.ErrSpelling:        "Write answers out in full and compare letter by letter.",
	lang.ErrVocabulary:      "Review due words more often and add example sentences for the hard ones.",
	lang.ErrAccent:          "Mind č, ć, š, ž and đ; they change the word.",
	lang.ErrOther:           "Keep practicing and read the feedback on each answer.",
}

// Suggestion returns the practice hint for an error category.
func Suggestion(c lang.ErrorCategory) string {
	if s, ok := suggestions[c]; ok {
		return s
	}
	return suggestions[lang.ErrOther]
}

// Build computes the report. It does no I/O.
func Build(in Inputs, cfg Config) (*Report, error) {
	loc, err := cfg.location()
	if err != nil {
		return nil, err
	}
	now := in.Now.In(loc)
	r := &Report{Owner: in.Owner, At: in.Now}

	r.Vocabulary = vocabulary(in.Words, cfg)
	r.Topics = topicStats(in.Topics)
	r.Errors = errorPatterns(in, cfg)
	r.Activity = activity(in.Recent, now, loc, cfg)

	r.Summary = Summary{
		TotalWords:    len(in.Words),
		MasteredWords: r.Vocabulary.Mastered,
		DueToday:      dueBy(in.Words, endOfDay(now)),
		StreakDays:    streak(in.Recent, now, loc),
		Level:         currentLevel(in.Words, cfg),
	}
	for _, t := range in.Tally {
		r.Summary.TotalExercises += t.Count
		if !t.Correct {
			r.Summary.TotalErrors += t.Count
		}
	}
	return r, nil
}

func vocabulary(words []store.Word, cfg Config) Vocabulary {
	var v Vocabulary
	byLevel := make(map[lang.Level]int)
	for i := range words {
		w := &words[i]
		byLevel[w.Level]++
		switch {
		case w.MasteryScore == 0:
			v.New++
		case w.MasteryScore < cfg.MasteredThreshold:
			v.Learning++
		default:
			v.Mastered++
		}
	}
	for _, l := range lang.AllLevels() {
		if n := byLevel[l]; n > 0 {
			v.ByLevel = append(v.ByLevel, LevelCount{Level: l, Count: n})
		}
	}

	recent := make([]store.Word, len(words))
	copy(recent, words)
	sort.SliceStable(recent, func(i, j int) bool {
		if !recent[i].CreatedAt.Equal(recent[j].CreatedAt) {
			return recent[i].CreatedAt.After(recent[j].CreatedAt)
		}
		return recent[i].ID > recent[j].ID
	})
	for i := 0; i < len(recent) && i < cfg.RecentWords; i++ {
		v.Recent = append(v.Recent, RecentWord{
			Target:       recent[i].Target,
			Native:       recent[i].Native,
			MasteryScore: recent[i].MasteryScore,
		})
	}
	return v
}

func topicStats(statuses []mastery.TopicStatus) TopicStats {
	ts := TopicStats{Total: len(statuses), Statuses: statuses}
	for _, s := range statuses {
		if s.Progress.TimesPracticed > 0 {
			ts.Practiced++
		}
		if s.Label == mastery.LabelStrong {
			ts.Strong++
		}
	}
	return ts
}

// dueBy counts words that are due before the cutoff, never-reviewed words
// included.
func dueBy(words []store.Word, cutoff time.Time) int {
	n := 0
	for i := range words {
		if words[i].NextReviewAt == nil || !words[i].NextReviewAt.After(cutoff) {
			n++
		}
	}
	return n
}

// currentLevel starts at A1 and moves one past every level that has
// enough mastered words.
func currentLevel(words []store.Word, cfg Config) lang.Level {
	mastered := make(map[lang.Level]int)
	for i := range words {
		if words[i].MasteryScore >= cfg.MasteredThreshold {
			mastered[words[i].Level]++
		}
	}
	levels := lang.AllLevels()
	current := levels[0]
	for i := 0; i < len(levels)-1; i++ {
		if mastered[levels[i]] >= cfg.LevelUpWords {
			current = levels[i+1]
		}
	}
	return current
}

func errorPatterns(in Inputs, cfg Config) ErrorPatterns {
	var ep ErrorPatterns
	counts := make(map[lang.ErrorCategory]int)
	for _, t := range in.Tally {
		if t.Correct {
			continue
		}
		c := t.ErrorCategory
		if c == "" {
			c = lang.ErrOther
		}
		counts[c] += t.Count
	}
	for c, n := range counts {
		ep.ByCategory = append(ep.ByCategory, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(ep.ByCategory, func(i, j int) bool {
		if ep.ByCategory[i].Count != ep.ByCategory[j].Count {
			return ep.ByCategory[i].Count > ep.ByCategory[j].Count
		}
		return ep.ByCategory[i].Category < ep.ByCategory[j].Category
	})
	for i := 0; i < len(ep.ByCategory) && i < cfg.WeakAreas; i++ {
		c := ep.ByCategory[i]
		ep.WeakAreas = append(ep.WeakAreas, WeakArea{
			Category:   c.Category,
			Count:      c.Count,
			Suggestion: Suggestion(c.Category),
		})
	}

	words := make(map[string]*store.Word, len(in.Words))
	for i := range in.Words {
		words[in.Words[i].ID] = &in.Words[i]
	}
	topics := make(map[string]string, len(in.Topics))
	for _, s := range in.Topics {
		topics[s.Topic.ID] = s.Topic.Name
	}
	for i := len(in.Recent) - 1; i >= 0 && len(ep.Recent) < cfg.RecentMistakes; i-- {
		rec := in.Recent[i]
		if rec.Correct {
			continue
		}
		subject := rec.SubjectID
		switch rec.Kind {
		case store.ReviewKindWord:
			if w, ok := words[rec.SubjectID]; ok {
				subject = w.Target + " (" + w.Native + ")"
			}
		case store.ReviewKindTopic:
			if name, ok := topics[rec.SubjectID]; ok {
				subject = name
			}
		}
		ep.Recent = append(ep.Recent, Mistake{
			At:       rec.Timestamp,
			Kind:     rec.Kind,
			Subject:  subject,
			Category: rec.ErrorCategory,
		})
	}
	return ep
}

func activity(recent []store.ReviewRecord, now time.Time, loc *time.Location, cfg Config) Activity {
	var a Activity
	today := startOfDay(now)
	first := today.AddDate(0, 0, -(cfg.ActivityDays - 1))
	a.Days = make([]DayActivity, cfg.ActivityDays)
	for i := range a.Days {
		a.Days[i].Date = first.AddDate(0, 0, i)
	}
	for _, rec := range recent {
		day := startOfDay(rec.Timestamp.In(loc))
		if day.Before(first) || day.After(today) {
			continue
		}
		idx := daysBetween(first, day)
		if idx < 0 || idx >= len(a.Days) {
			continue
		}
		a.Days[idx].Reviews++
		if rec.Correct {
			a.Days[idx].Correct++
		}
		if rec.Kind == store.ReviewKindTopic {
			a.TopicReviews++
		} else {
			a.WordReviews++
		}
	}
	return a
}

// streak counts consecutive days with at least one review, ending today or
// yesterday.
func streak(recent []store.ReviewRecord, now time.Time, loc *time.Location) int {
	active := make(map[string]bool)
	for _, rec := range recent {
		active[dayKey(rec.Timestamp.In(loc))] = true
	}
	day := startOfDay(now)
	if !active[dayKey(day)] {
		day = day.AddDate(0, 0, -1)
		if !active[dayKey(day)] {
			return 0
		}
	}
	n := 0
	for active[dayKey(day)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// daysBetween counts calendar days, which stays exact across DST changes.
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
