package exercise

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/lexiz/internal/contentgen"
	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/logging"
	"github.com/abhisek/lexiz/internal/mastery"
	"github.com/abhisek/lexiz/internal/spacedrep"
	"github.com/abhisek/lexiz/internal/store"
)

// WordScheduler applies vocabulary reviews.
type WordScheduler interface {
	Apply(ctx context.Context, r store.Repos, in spacedrep.ReviewInput) (*store.Word, error)
}

// TopicTracker applies grammar outcomes and picks weak topics.
type TopicTracker interface {
	Apply(ctx context.Context, r store.Repos, in mastery.OutcomeInput) (*store.TopicProgress, error)
	WeakTopics(ctx context.Context, owner string, level lang.Level, k int) ([]mastery.WeightedTopic, error)
}

// LearnerContexter describes an owner's progress for the generator.
type LearnerContexter interface {
	LearnerContext(ctx context.Context, owner string) (string, error)
}

// TransitionFunc observes batch lifecycle transitions.
type TransitionFunc func(owner, batchID string, from, to State)

// Coordinator runs the generate, serve, evaluate, apply cycle. Each owner
// has at most one open batch. The lock is never held across a generator
// call or a transaction.
type Coordinator struct {
	backend   store.Backend
	generator contentgen.Generator
	scheduler WordScheduler
	tracker   TopicTracker
	config    Config
	log       *logging.Logger
	now       func() time.Time

	onTransition TransitionFunc
	learner      LearnerContexter

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	batch   *Batch
	settled []string // most recent last, bounded by SettledMemory
}

// NewCoordinator wires a coordinator.
func NewCoordinator(backend store.Backend, gen contentgen.Generator, sched WordScheduler, tracker TopicTracker, cfg Config, log *logging.Logger) *Coordinator {
	return &Coordinator{
		backend:   backend,
		generator: gen,
		scheduler: sched,
		tracker:   tracker,
		config:    cfg,
		log:       logging.OrNop(log).With("component", "exercise"),
		now:       func() time.Time { return time.Now().UTC() },
		slots:     make(map[string]*slot),
	}
}

// SetClock replaces the time source.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// OnTransition registers fn to observe every lifecycle transition. It is
// called with the coordinator lock held and must not call back into it.
func (c *Coordinator) OnTransition(fn TransitionFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTransition = fn
}

// UseLearnerContext makes every generate request carry src's profile of
// the owner. A failing src is logged and the batch is generated without it.
func (c *Coordinator) UseLearnerContext(src LearnerContexter) {
	c.learner = src
}

// GenerateBatch creates and returns a new batch of count exercises. The
// batch may hold fewer items when the generator drops malformed ones or
// there are fewer distinct words than requested.
func (c *Coordinator) GenerateBatch(ctx context.Context, owner string, count int, cons Constraints) (*Batch, error) {
	if count < c.config.MinCount || count > c.config.MaxCount {
		return nil, &ValidationError{
			Field:   "count",
			Message: fmt.Sprintf("must be between %d and %d, got %d", c.config.MinCount, c.config.MaxCount, count),
		}
	}
	if !cons.Modality.Valid() {
		return nil, &ValidationError{Field: "modality", Message: fmt.Sprintf("unknown modality %q", cons.Modality)}
	}
	if cons.Level != "" && !cons.Level.Valid() {
		return nil, &ValidationError{Field: "level", Message: fmt.Sprintf("unknown level %q", cons.Level)}
	}

	c.mu.Lock()
	s := c.slot(owner)
	if s.batch != nil && s.batch.State.open() {
		c.mu.Unlock()
		return nil, ErrBatchInProgress
	}
	b := &Batch{
		ID:          uuid.NewString(),
		Owner:       owner,
		Constraints: cons,
		State:       StateIdle,
		CreatedAt:   c.now(),
	}
	s.batch = b
	c.transition(b, StateGenerating)
	c.mu.Unlock()

	items, err := c.generate(ctx, b, count)
	if err != nil {
		c.fail(b, err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	b.Items = items
	c.transition(b, StateAwaitingAnswers)
	return b.clone(), nil
}

func (c *Coordinator) generate(ctx context.Context, b *Batch, count int) ([]Item, error) {
	seeds, err := c.seeds(ctx, b.Owner, count, b.Constraints)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, ErrNothingToPractice
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.GenerateTimeout)
	defer cancel()
	generated, err := c.generator.Generate(callCtx, contentgen.GenerateRequest{
		Owner:          b.Owner,
		Count:          len(seeds),
		Level:          b.Constraints.Level,
		Modality:       b.Constraints.Modality,
		Seeds:          seeds,
		LearnerContext: c.learnerContext(ctx, b),
	})
	if err != nil {
		return nil, callError(err)
	}

	// Each seed may back as many items as it was requested for. Word
	// seeds are never repeated, so a word gets at most one review per batch.
	topicSeeds := b.Constraints.Modality.IsTopicBearing()
	quota := make(map[string]int, len(seeds))
	for _, sd := range seeds {
		quota[sd.ID]++
	}
	seen := make(map[string]bool, len(generated))
	items := make([]Item, 0, len(generated))
	for i, g := range generated {
		if quota[g.SeedID] == 0 {
			c.log.Warn("dropping exercise with unknown or repeated seed",
				"owner", b.Owner,
				"batch", b.ID,
				"index", i,
				"seed", g.SeedID,
			)
			continue
		}
		quota[g.SeedID]--
		id := g.ID
		if id == "" || seen[id] {
			id = uuid.NewString()
		}
		seen[id] = true
		it := Item{ID: id, Prompt: g.Prompt, ExpectedAnswer: g.ExpectedAnswer, Hint: g.Hint}
		if topicSeeds {
			it.TopicID = g.SeedID
		} else {
			it.WordID = g.SeedID
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no usable exercises in response", contentgen.ErrMalformedResponse)
	}
	if len(items) < count {
		c.log.Warn("serving a partial batch",
			"owner", b.Owner,
			"batch", b.ID,
			"requested", count,
			"served", len(items),
		)
	}
	return items, nil
}

// seeds picks what the batch practices. Vocabulary batches take due words
// first, then the weakest words, each word at most once. Topic batches
// sample weak topics and cycle through them to fill count.
func (c *Coordinator) seeds(ctx context.Context, owner string, count int, cons Constraints) ([]contentgen.Seed, error) {
	if cons.Modality.IsTopicBearing() {
		weak, err := c.tracker.WeakTopics(ctx, owner, cons.Level, count)
		if err != nil {
			return nil, fmt.Errorf("select weak topics: %w", err)
		}
		if len(weak) == 0 {
			return nil, nil
		}
		seeds := make([]contentgen.Seed, count)
		for i := range seeds {
			t := weak[i%len(weak)].Topic
			seeds[i] = contentgen.Seed{ID: t.ID, Kind: contentgen.SeedTopic, Text: t.Name, Detail: t.Description}
		}
		return seeds, nil
	}

	due, err := c.backend.Words().Due(ctx, owner, c.now(), 0)
	if err != nil {
		return nil, fmt.Errorf("select due words: %w", err)
	}
	weakest, err := c.backend.Words().Weakest(ctx, owner, cons.Level, count)
	if err != nil {
		return nil, fmt.Errorf("select weak words: %w", err)
	}

	seeds := make([]contentgen.Seed, 0, count)
	picked := make(map[string]bool, count)
	add := func(w store.Word) {
		if len(seeds) == count || picked[w.ID] {
			return
		}
		if cons.Level != "" && w.Level != cons.Level {
			return
		}
		picked[w.ID] = true
		seeds = append(seeds, wordSeed(w))
	}
	for _, w := range due {
		add(w)
	}
	for _, w := range weakest {
		add(w)
	}
	return seeds, nil
}

func wordSeed(w store.Word) contentgen.Seed {
	detail := string(w.PartOfSpeech)
	if w.Gender != lang.GenderNone {
		detail += ", " + string(w.Gender)
	}
	return contentgen.Seed{
		ID:     w.ID,
		Kind:   contentgen.SeedWord,
		Text:   w.Native + " = " + w.Target,
		Detail: detail,
	}
}

// EvaluateBatch judges answers for the open batch and applies every result
// in one transaction. Results come back in answer order.
func (c *Coordinator) EvaluateBatch(ctx context.Context, owner, batchID string, answers []Answer) ([]Result, error) {
	c.mu.Lock()
	s := c.slot(owner)
	b := s.batch
	if b == nil || b.ID != batchID {
		settled := contains(s.settled, batchID)
		c.mu.Unlock()
		if settled {
			return nil, ErrBatchSettled
		}
		return nil, ErrBatchNotFound
	}
	if b.State != StateAwaitingAnswers {
		c.mu.Unlock()
		return nil, ErrBatchInProgress
	}
	if err := checkAnswers(b, answers); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.transition(b, StateEvaluating)
	snapshot := b.clone()
	c.mu.Unlock()

	results, err := c.evaluate(ctx, snapshot, answers)
	if err != nil {
		c.fail(b, err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.transition(b, StateSettled)
	s.settled = append(s.settled, b.ID)
	if over := len(s.settled) - c.config.SettledMemory; over > 0 {
		s.settled = s.settled[over:]
	}
	s.batch = nil
	c.notify(b, StateSettled, StateIdle)
	return results, nil
}

// checkAnswers requires one answer per exercise of b and nothing else.
func checkAnswers(b *Batch, answers []Answer) error {
	inBatch := make(map[string]bool, len(b.Items))
	for _, it := range b.Items {
		inBatch[it.ID] = true
	}

	mismatch := &BatchMismatchError{BatchID: b.ID}
	answered := make(map[string]int, len(answers))
	for _, a := range answers {
		answered[a.ExerciseID]++
		switch {
		case !inBatch[a.ExerciseID]:
			if answered[a.ExerciseID] == 1 {
				mismatch.Unexpected = append(mismatch.Unexpected, a.ExerciseID)
			}
		case answered[a.ExerciseID] == 2:
			mismatch.Duplicate = append(mismatch.Duplicate, a.ExerciseID)
		}
	}
	for _, it := range b.Items {
		if answered[it.ID] == 0 {
			mismatch.Missing = append(mismatch.Missing, it.ID)
		}
	}
	if len(mismatch.Missing)+len(mismatch.Unexpected)+len(mismatch.Duplicate) > 0 {
		return mismatch
	}

	for _, a := range answers {
		if a.Latency < 0 {
			return &ValidationError{Field: "latency", Message: fmt.Sprintf("exercise %s has negative latency %s", a.ExerciseID, a.Latency)}
		}
	}
	return nil
}

func (c *Coordinator) evaluate(ctx context.Context, b *Batch, answers []Answer) ([]Result, error) {
	byID := make(map[string]Item, len(b.Items))
	for _, it := range b.Items {
		byID[it.ID] = it
	}

	ordered := make([]Item, len(answers))
	evalItems := make([]contentgen.EvaluateItem, len(answers))
	for i, a := range answers {
		it := byID[a.ExerciseID]
		ordered[i] = it
		evalItems[i] = contentgen.EvaluateItem{
			UserAnswer:     a.Text,
			ExpectedAnswer: it.ExpectedAnswer,
			Context:        it.Prompt,
			TopicHint:      it.TopicID,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.EvaluateTimeout)
	defer cancel()
	judgements, err := c.generator.Evaluate(callCtx, contentgen.EvaluateRequest{
		Owner:    b.Owner,
		Modality: b.Constraints.Modality,
		Items:    evalItems,
	})
	if err != nil {
		return nil, callError(err)
	}
	if len(judgements) != len(answers) {
		return nil, fmt.Errorf("%w: got %d judgements for %d answers",
			contentgen.ErrMalformedResponse, len(judgements), len(answers))
	}

	results := make([]Result, len(answers))
	for i, j := range judgements {
		it := ordered[i]
		results[i] = Result{
			ExerciseID:     it.ID,
			WordID:         it.WordID,
			TopicID:        it.TopicID,
			Correct:        j.Correct,
			Score:          j.Score,
			ErrorCategory:  j.ErrorCategory,
			Feedback:       j.Feedback,
			ExpectedAnswer: it.ExpectedAnswer,
		}
	}

	if err := c.apply(ctx, b, answers, results); err != nil {
		return nil, err
	}
	return results, nil
}

// apply writes every result or none of them.
func (c *Coordinator) apply(ctx context.Context, b *Batch, answers []Answer, results []Result) error {
	at := c.now()
	err := c.backend.WithTx(ctx, func(r store.Repos) error {
		for i, res := range results {
			score := res.Score
			switch {
			case res.WordID != "":
				_, err := c.scheduler.Apply(ctx, r, spacedrep.ReviewInput{
					Owner:         b.Owner,
					WordID:        res.WordID,
					Outcome:       spacedrep.Outcome{Correct: res.Correct, Latency: answers[i].Latency},
					Score:         &score,
					ErrorCategory: res.ErrorCategory,
					BatchID:       b.ID,
					At:            at,
				})
				if err != nil {
					return fmt.Errorf("apply exercise %s: %w", res.ExerciseID, err)
				}
			case res.TopicID != "":
				_, err := c.tracker.Apply(ctx, r, mastery.OutcomeInput{
					Owner:         b.Owner,
					TopicID:       res.TopicID,
					Correct:       res.Correct,
					Score:         &score,
					ErrorCategory: res.ErrorCategory,
					SubjectID:     res.ExerciseID,
					BatchID:       b.ID,
					At:            at,
				})
				if err != nil {
					return fmt.Errorf("apply exercise %s: %w", res.ExerciseID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply batch %s: %w", b.ID, err)
	}
	return nil
}

// Current returns a copy of the owner's open batch, if any.
func (c *Coordinator) Current(owner string) (*Batch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[owner]
	if !ok || s.batch == nil {
		return nil, false
	}
	return s.batch.clone(), true
}

// Discard abandons the owner's batch that is awaiting answers. Nothing is
// applied. A batch that is generating or evaluating cannot be discarded.
func (c *Coordinator) Discard(owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[owner]
	if !ok || s.batch == nil {
		return ErrBatchNotFound
	}
	if s.batch.State != StateAwaitingAnswers {
		return ErrBatchInProgress
	}
	b := s.batch
	s.batch = nil
	c.notify(b, b.State, StateIdle)
	return nil
}

// fail moves b to Failed and discards it.
func (c *Coordinator) fail(b *Batch, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transition(b, StateFailed)
	if s, ok := c.slots[b.Owner]; ok && s.batch == b {
		s.batch = nil
	}
	c.notify(b, StateFailed, StateIdle)

	level := c.log.Warn
	if errors.Is(cause, ErrNothingToPractice) {
		level = c.log.Info
	}
	level("exercise batch failed", "owner", b.Owner, "batch", b.ID, "error", cause)
}

// slot returns the owner's slot, creating it. Must hold c.mu.
func (c *Coordinator) slot(owner string) *slot {
	s, ok := c.slots[owner]
	if !ok {
		s = &slot{}
		c.slots[owner] = s
	}
	return s
}

// transition sets b.State and reports it. Must hold c.mu.
func (c *Coordinator) transition(b *Batch, to State) {
	from := b.State
	b.State = to
	c.notify(b, from, to)
}

func (c *Coordinator) notify(b *Batch, from, to State) {
	c.log.Debug("batch transition", "owner", b.Owner, "batch", b.ID, "from", from, "to", to, "items", len(b.Items))
	if c.onTransition != nil {
		c.onTransition(b.Owner, b.ID, from, to)
	}
}

func (c *Coordinator) learnerContext(ctx context.Context, b *Batch) string {
	if c.learner == nil {
		return ""
	}
	text, err := c.learner.LearnerContext(ctx, b.Owner)
	if err != nil {
		c.log.Warn("generating without learner context", "owner", b.Owner, "batch", b.ID, "error", err)
		return ""
	}
	return text
}

// callError reports a generator call that ran past its deadline as
// unavailable, keeping the deadline in the chain.
func callError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, contentgen.ErrUnavailable) {
		return fmt.Errorf("%w: %w", contentgen.ErrUnavailable, err)
	}
	return err
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
