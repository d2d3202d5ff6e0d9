package mastery

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/logging"
	"github.com/abhisek/lexiz/internal/store"
)

// Tracker maintains per-owner grammar topic mastery and picks weak topics
// for practice.
type Tracker struct {
	backend store.Backend
	config  Config
	now     func() time.Time
	log     *logging.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewTracker creates a tracker. A nil rng is replaced by a time-seeded one;
// tests pass a fixed seed for reproducible sampling.
func NewTracker(backend store.Backend, cfg Config, rng *rand.Rand, log *logging.Logger) *Tracker {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Tracker{
		backend: backend,
		config:  cfg,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logging.OrNop(log).With("component", "mastery"),
		rng:     rng,
	}
}

// SetClock replaces the time source.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Config returns the tracker settings.
func (t *Tracker) Config() Config {
	return t.config
}

// OutcomeInput describes one graded topic outcome.
type OutcomeInput struct {
	Owner   string
	TopicID string
	Correct bool

	// History annotations.
	Score         *float64
	ErrorCategory lang.ErrorCategory
	SubjectID     string // exercise the outcome came from, defaults to TopicID
	BatchID       string

	At time.Time
}

// RecordOutcome applies one outcome in its own transaction and returns the
// updated progress.
func (t *Tracker) RecordOutcome(ctx context.Context, owner, topicID string, correct bool) (*store.TopicProgress, error) {
	var updated *store.TopicProgress
	err := t.backend.WithTx(ctx, func(r store.Repos) error {
		p, err := t.Apply(ctx, r, OutcomeInput{Owner: owner, TopicID: topicID, Correct: correct})
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Apply updates topic progress against repositories the caller controls
// and appends one topic history record. Unknown topics are rejected with
// store.ErrNotFound.
func (t *Tracker) Apply(ctx context.Context, r store.Repos, in OutcomeInput) (*store.TopicProgress, error) {
	at := in.At
	if at.IsZero() {
		at = t.now()
	}

	topic, err := r.Topics().GetTopic(ctx, in.TopicID)
	if err != nil {
		return nil, err
	}

	p, err := r.Topics().GetProgress(ctx, in.Owner, in.TopicID)
	if err != nil {
		return nil, err
	}
	p.MasteryScore = NextScore(p.MasteryScore, in.Correct, t.config)
	p.TimesPracticed++
	p.LastPracticedAt = &at

	if err := r.Topics().SaveProgress(ctx, p); err != nil {
		return nil, err
	}

	score := 0.0
	if in.Correct {
		score = 1.0
	}
	if in.Score != nil {
		score = *in.Score
	}
	subject := in.SubjectID
	if subject == "" {
		subject = topic.ID
	}
	rec := &store.ReviewRecord{
		Owner:         in.Owner,
		Timestamp:     at,
		Kind:          store.ReviewKindTopic,
		SubjectID:     subject,
		Correct:       in.Correct,
		Score:         score,
		ErrorCategory: in.ErrorCategory,
		TopicID:       topic.ID,
		Level:         topic.Level,
		BatchID:       in.BatchID,
	}
	if err := r.History().Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("record topic outcome %s: %w", topic.ID, err)
	}

	t.log.Debug("topic practiced",
		"owner", in.Owner,
		"topic", topic.ID,
		"correct", in.Correct,
		"mastery", p.MasteryScore,
		"times_practiced", p.TimesPracticed,
	)
	return p, nil
}

// WeakTopics samples up to k topics at level (all levels when empty),
// without replacement, favouring low mastery. Topics the owner has never
// practiced count as mastery 0. An empty catalog yields an empty result.
func (t *Tracker) WeakTopics(ctx context.Context, owner string, level lang.Level, k int) ([]WeightedTopic, error) {
	if k <= 0 {
		return nil, nil
	}
	candidates, err := t.candidates(ctx, owner, level)
	if err != nil {
		return nil, err
	}

	t.rngMu.Lock()
	picked := sampleWeighted(candidates, k, t.rng)
	t.rngMu.Unlock()
	return picked, nil
}

func (t *Tracker) candidates(ctx context.Context, owner string, level lang.Level) ([]WeightedTopic, error) {
	topics, err := t.backend.Topics().ListTopics(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	if len(topics) == 0 {
		return nil, nil
	}
	progress, err := t.progressByTopic(ctx, owner)
	if err != nil {
		return nil, err
	}

	out := make([]WeightedTopic, len(topics))
	total := 0.0
	for i, topic := range topics {
		m := 0
		if p, ok := progress[topic.ID]; ok {
			m = p.MasteryScore
		}
		w := Weight(m, t.config)
		out[i] = WeightedTopic{Topic: topic, Mastery: m, Weight: w}
		total += w
	}
	for i := range out {
		out[i].Probability = out[i].Weight / total
	}
	return out, nil
}

func (t *Tracker) progressByTopic(ctx context.Context, owner string) (map[string]store.TopicProgress, error) {
	rows, err := t.backend.Topics().ListProgress(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list progress for %s: %w", owner, err)
	}
	m := make(map[string]store.TopicProgress, len(rows))
	for _, p := range rows {
		m[p.TopicID] = p
	}
	return m, nil
}

// TopicStatus is a catalog topic joined with the owner's progress.
type TopicStatus struct {
	Topic    store.GrammarTopic
	Progress store.TopicProgress
	Label    Label
	Percent  int
}

// Progress lists every catalog topic with the owner's progress and its
// display label, weakest first.
func (t *Tracker) Progress(ctx context.Context, owner string) ([]TopicStatus, error) {
	topics, err := t.backend.Topics().ListTopics(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	progress, err := t.progressByTopic(ctx, owner)
	if err != nil {
		return nil, err
	}

	out := make([]TopicStatus, 0, len(topics))
	for _, topic := range topics {
		p, ok := progress[topic.ID]
		if !ok {
			p = store.TopicProgress{Owner: owner, TopicID: topic.ID}
		}
		out = append(out, TopicStatus{
			Topic:    topic,
			Progress: p,
			Label:    ResolveLabel(&p, t.config),
			Percent:  Percent(p.MasteryScore, t.config),
		})
	}
	sortStatuses(out)
	return out, nil
}

func sortStatuses(s []TopicStatus) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Progress.MasteryScore != s[j].Progress.MasteryScore {
			return s[i].Progress.MasteryScore < s[j].Progress.MasteryScore
		}
		return s[i].Topic.ID < s[j].Topic.ID
	})
}
