package exercise

import (
	"time"

	"github.com/abhisek/lexiz/internal/lang"
)

// Constraints narrow what a batch practices.
type Constraints struct {
	// Level restricts seeds to one CEFR level. Empty means any level.
	Level    lang.Level
	Modality lang.Modality
}

// Item is one served exercise. Exactly one of WordID and TopicID is set,
// depending on the batch modality.
type Item struct {
	ID             string
	WordID         string
	TopicID        string
	Prompt         string
	ExpectedAnswer string
	Hint           string
}

// Batch is a transient set of exercises for one owner. It lives from
// generation until its answers are evaluated and is never persisted.
type Batch struct {
	ID          string
	Owner       string
	Constraints Constraints
	Items       []Item
	State       State
	CreatedAt   time.Time
}

func (b *Batch) clone() *Batch {
	cp := *b
	cp.Items = append([]Item(nil), b.Items...)
	return &cp
}

// ItemIDs returns the exercise ids in serving order.
func (b *Batch) ItemIDs() []string {
	ids := make([]string, len(b.Items))
	for i, it := range b.Items {
		ids[i] = it.ID
	}
	return ids
}

// Answer is the learner's response to one exercise.
type Answer struct {
	ExerciseID string
	Text       string
	// Latency is how long the learner took. Zero when unknown.
	Latency time.Duration
}

// Result is the applied outcome of one answer.
type Result struct {
	ExerciseID     string
	WordID         string
	TopicID        string
	Correct        bool
	Score          float64
	ErrorCategory  lang.ErrorCategory
	Feedback       string
	ExpectedAnswer string
}

// Summary aggregates a settled batch.
type Summary struct {
	Total    int
	Correct  int
	Accuracy float64
	// ByCategory counts wrong answers per error category.
	ByCategory map[lang.ErrorCategory]int
}

// Summarize builds a Summary from results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), ByCategory: map[lang.ErrorCategory]int{}}
	for _, r := range results {
		if r.Correct {
			s.Correct++
			continue
		}
		if r.ErrorCategory != "" {
			s.ByCategory[r.ErrorCategory]++
		}
	}
	if s.Total > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Total)
	}
	return s
}
