package spacedrep

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/logging"
	"github.com/abhisek/lexiz/internal/store"
)

// Scheduler persists vocabulary reviews and answers due-set queries.
// It is the only writer of a word's review state.
type Scheduler struct {
	backend store.Backend
	config  Config
	now     func() time.Time
	log     *logging.Logger
}

// NewScheduler creates a scheduler over the given persistence backend.
func NewScheduler(backend store.Backend, cfg Config, log *logging.Logger) *Scheduler {
	return &Scheduler{
		backend: backend,
		config:  cfg,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logging.OrNop(log).With("component", "scheduler"),
	}
}

// SetClock replaces the time source. Tests use it to pin "now".
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the scheduler settings.
func (s *Scheduler) Config() Config {
	return s.config
}

// ReviewInput describes one vocabulary review to apply.
type ReviewInput struct {
	Owner   string
	WordID  string
	Outcome Outcome

	// Optional history annotations, set when the review comes from an
	// evaluated exercise batch.
	Score         *float64
	ErrorCategory lang.ErrorCategory
	BatchID       string

	// At overrides the review time. Zero means the scheduler clock.
	At time.Time
}

// Review applies a single review in its own transaction and returns the
// updated word. A lost update surfaces as store.ErrConcurrentModification;
// the caller should re-read and retry.
func (s *Scheduler) Review(ctx context.Context, owner, wordID string, o Outcome) (*store.Word, error) {
	var updated *store.Word
	err := s.backend.WithTx(ctx, func(r store.Repos) error {
		w, err := s.Apply(ctx, r, ReviewInput{Owner: owner, WordID: wordID, Outcome: o})
		if err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Apply performs the review against repositories the caller controls,
// typically ones bound to a transaction spanning several reviews. It
// reads the word, applies the outcome, writes it back with a version check
// and appends one history record.
func (s *Scheduler) Apply(ctx context.Context, r store.Repos, in ReviewInput) (*store.Word, error) {
	at := in.At
	if at.IsZero() {
		at = s.now()
	}

	w, err := r.Words().Get(ctx, in.Owner, in.WordID)
	if err != nil {
		return nil, err
	}

	next, err := Review(*w, in.Outcome, at, s.config)
	if err != nil {
		return nil, err
	}

	if err := r.Words().Update(ctx, &next); err != nil {
		return nil, err
	}

	score := 0.0
	if in.Outcome.Correct {
		score = 1.0
	}
	if in.Score != nil {
		score = *in.Score
	}
	rec := &store.ReviewRecord{
		Owner:         in.Owner,
		Timestamp:     at,
		Kind:          store.ReviewKindWord,
		SubjectID:     next.ID,
		Correct:       in.Outcome.Correct,
		Score:         score,
		ErrorCategory: in.ErrorCategory,
		PartOfSpeech:  next.PartOfSpeech,
		Level:         next.Level,
		LatencyMs:     in.Outcome.Latency.Milliseconds(),
		BatchID:       in.BatchID,
	}
	if err := r.History().Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("record review of %s: %w", next.ID, err)
	}

	s.log.Debug("word reviewed",
		"owner", in.Owner,
		"word", next.ID,
		"correct", in.Outcome.Correct,
		"streak", next.CorrectStreak,
		"ease", next.EaseFactor,
		"interval_days", next.IntervalDays,
		"mastery", next.MasteryScore,
	)
	return &next, nil
}

// Due returns the owner's words whose next review is at or before now,
// oldest due first and, among equally due words, weakest first. It is a
// pure read. limit <= 0 returns all due words.
func (s *Scheduler) Due(ctx context.Context, owner string, now time.Time, limit int) ([]store.Word, error) {
	words, err := s.backend.Words().Due(ctx, owner, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due words for %s: %w", owner, err)
	}
	return words, nil
}

// IsDue reports whether w should be reviewed at now. Words that were never
// reviewed are not due; they enter the rotation through practice batches.
func IsDue(w *store.Word, now time.Time) bool {
	return w.NextReviewAt != nil && !now.Before(*w.NextReviewAt)
}

// OverdueDays returns how many days past due w is. Returns 0 if not yet due.
func OverdueDays(w *store.Word, now time.Time) float64 {
	if !IsDue(w, now) {
		return 0
	}
	return now.Sub(*w.NextReviewAt).Hours() / 24.0
}
