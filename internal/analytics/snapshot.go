package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/lexiz/internal/spacedrep"
	"github.com/abhisek/lexiz/internal/store"
)

// Snapshot is the owner's vocabulary as of one read, plus the reference
// time reports are computed against. Reports never touch the store.
type Snapshot struct {
	Owner string
	Words []store.Word
	Now   time.Time

	// Reviews holds the owner's review history from Since up to Now, in
	// sequence order.
	Reviews []store.ReviewRecord
	Since   time.Time

	// MasteryOf maps a correct streak to a word mastery score. Nil means
	// the default scheduler scale.
	MasteryOf func(streak int) int
}

// WordLister is the read side the engine needs.
type WordLister interface {
	List(ctx context.Context, owner string) ([]store.Word, error)
}

// HistoryReader reads the review log.
type HistoryReader interface {
	Query(ctx context.Context, owner string, opts store.QueryOpts) ([]store.ReviewRecord, error)
}

// LoadSnapshot reads every word of owner in a single statement.
func LoadSnapshot(ctx context.Context, words WordLister, owner string, now time.Time) (*Snapshot, error) {
	list, err := words.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load analytics snapshot: %w", err)
	}
	return &Snapshot{Owner: owner, Words: list, Now: now}, nil
}

// LoadReviews adds the owner's reviews between since and s.Now. Words are
// read first, so a review landing in between is at worst missing here.
func (s *Snapshot) LoadReviews(ctx context.Context, history HistoryReader, since time.Time) error {
	recs, err := history.Query(ctx, s.Owner, store.QueryOpts{From: since, To: s.Now})
	if err != nil {
		return fmt.Errorf("load analytics history: %w", err)
	}
	s.Reviews = recs
	s.Since = since
	return nil
}

func (s *Snapshot) masteryOf(streak int) int {
	if s.MasteryOf != nil {
		return s.MasteryOf(streak)
	}
	def := spacedrep.DefaultConfig()
	return spacedrep.MasteryFromStreak(streak, def.RequiredStreak, def.MaxMastery)
}

func failureRate(correct, wrong int) float64 {
	total := correct + wrong
	if total == 0 {
		return 0
	}
	return float64(wrong) / float64(total)
}

// startOfDay returns local midnight of t in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// startOfISOWeek returns local midnight of the Monday on or before t.
func startOfISOWeek(t time.Time, loc *time.Location) time.Time {
	day := startOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
