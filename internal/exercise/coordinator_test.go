package exercise

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lexiz/internal/contentgen"
	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/mastery"
	"github.com/abhisek/lexiz/internal/spacedrep"
	"github.com/abhisek/lexiz/internal/store"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fakeGenerator builds one exercise per seed whose answer is "ans-<seed>"
// and judges an answer correct when it equals the expected answer.
type fakeGenerator struct {
	mu          sync.Mutex
	generateErr error
	evaluateErr error
	// block, when set, makes calls wait for it or for ctx.
	block         chan struct{}
	generateCalls int
	evaluateCalls int
	dropSeeds     map[string]bool
	// reseed makes the item built for a seed claim another seed instead.
	reseed      map[string]string
	lastRequest contentgen.GenerateRequest
}

func (f *fakeGenerator) wait(ctx context.Context) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeGenerator) Generate(ctx context.Context, req contentgen.GenerateRequest) ([]contentgen.GeneratedItem, error) {
	f.mu.Lock()
	f.generateCalls++
	f.lastRequest = req
	err := f.generateErr
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	var out []contentgen.GeneratedItem
	for i, s := range req.Seeds {
		if f.dropSeeds[s.ID] {
			continue
		}
		seedID := s.ID
		if to, ok := f.reseed[s.ID]; ok {
			seedID = to
		}
		out = append(out, contentgen.GeneratedItem{
			ID:             fmt.Sprintf("ex-%d-%s", i, s.ID),
			SeedID:         seedID,
			Prompt:         "Translate: " + s.Text,
			ExpectedAnswer: "ans-" + s.ID,
		})
	}
	return out, nil
}

func (f *fakeGenerator) Evaluate(ctx context.Context, req contentgen.EvaluateRequest) ([]contentgen.Judgement, error) {
	f.mu.Lock()
	f.evaluateCalls++
	err := f.evaluateErr
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	out := make([]contentgen.Judgement, len(req.Items))
	for i, it := range req.Items {
		ok := it.UserAnswer == it.ExpectedAnswer
		out[i] = contentgen.Judgement{Correct: ok, TopicID: it.TopicHint}
		if ok {
			out[i].Score = 1
		} else {
			out[i].ErrorCategory = lang.ErrSpelling
		}
	}
	return out, nil
}

type harness struct {
	store   *store.Store
	gen     *fakeGenerator
	sched   *spacedrep.Scheduler
	tracker *mastery.Tracker
	coord   *Coordinator
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "exercise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := func() time.Time { return t0 }
	sched := spacedrep.NewScheduler(s, spacedrep.DefaultConfig(), nil)
	sched.SetClock(clock)
	tracker := mastery.NewTracker(s, mastery.DefaultConfig(), rand.New(rand.NewPCG(1, 2)), nil)
	tracker.SetClock(clock)

	gen := &fakeGenerator{}
	coord := NewCoordinator(s, gen, sched, tracker, cfg, nil)
	coord.SetClock(clock)
	return &harness{store: s, gen: gen, sched: sched, tracker: tracker, coord: coord}
}

func (h *harness) addWords(t *testing.T, owner string, level lang.Level, n int) []*store.Word {
	t.Helper()
	var out []*store.Word
	for i := 0; i < n; i++ {
		w := &store.Word{
			Owner:        owner,
			Native:       fmt.Sprintf("word-%s-%d", level, i),
			Target:       fmt.Sprintf("riječ-%s-%d", level, i),
			PartOfSpeech: lang.Noun,
			Gender:       lang.GenderFeminine,
			Level:        level,
			CreatedAt:    t0.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, h.store.Words().Create(context.Background(), w))
		out = append(out, w)
	}
	return out
}

func (h *harness) snapshot(t *testing.T, owner string) []store.Word {
	t.Helper()
	words, err := h.store.Words().List(context.Background(), owner)
	require.NoError(t, err)
	return words
}

func answersFor(b *Batch, wrong map[int]bool) []Answer {
	out := make([]Answer, len(b.Items))
	for i, it := range b.Items {
		text := it.ExpectedAnswer
		if wrong[i] {
			text = "nope"
		}
		out[i] = Answer{ExerciseID: it.ID, Text: text, Latency: 4 * time.Second}
	}
	return out
}

func vocab(level lang.Level) Constraints {
	return Constraints{Level: level, Modality: lang.ModalityVocabNativeToTarget}
}

func TestEndToEnd_VocabularyBatch(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 5)
	h.addWords(t, "ana", lang.LevelB1, 3)

	b, err := h.coord.GenerateBatch(ctx, "ana", 5, vocab(lang.LevelA1))
	require.NoError(t, err)
	require.Len(t, b.Items, 5)
	assert.Equal(t, StateAwaitingAnswers, b.State)

	ids := map[string]bool{}
	for _, it := range b.Items {
		ids[it.ID] = true
		assert.NotEmpty(t, it.WordID)
		assert.Empty(t, it.TopicID)
	}
	assert.Len(t, ids, 5, "exercise ids must be unique")

	answers := answersFor(b, map[int]bool{1: true, 3: true})
	results, err := h.coord.EvaluateBatch(ctx, "ana", b.ID, answers)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, answers[i].ExerciseID, r.ExerciseID, "results keep answer order")
	}

	correctPath, wrongPath := 0, 0
	for _, w := range h.snapshot(t, "ana") {
		assert.LessOrEqual(t, w.Attempts(), 1, "word %s updated twice", w.ID)
		if w.Level != lang.LevelA1 {
			assert.Equal(t, 0, w.Attempts(), "other levels untouched")
			continue
		}
		switch {
		case w.CorrectCount == 1 && w.CorrectStreak == 1:
			correctPath++
		case w.WrongCount == 1 && w.CorrectStreak == 0:
			wrongPath++
		}
	}
	assert.Equal(t, 3, correctPath)
	assert.Equal(t, 2, wrongPath)

	hist, err := h.store.History().Query(ctx, "ana", store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, hist, 5)
	for _, rec := range hist {
		assert.Equal(t, b.ID, rec.BatchID)
		assert.Equal(t, store.ReviewKindWord, rec.Kind)
	}

	_, open := h.coord.Current("ana")
	assert.False(t, open, "settled batch returns to idle")

	sum := Summarize(results)
	assert.Equal(t, 3, sum.Correct)
	assert.Equal(t, 2, sum.ByCategory[lang.ErrSpelling])
}

func TestEndToEnd_TopicBatch(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	for _, id := range []string{"accusative", "aspect"} {
		require.NoError(t, h.store.Topics().UpsertTopic(ctx, store.GrammarTopic{ID: id, Name: id, Level: lang.LevelA2}))
	}

	b, err := h.coord.GenerateBatch(ctx, "ana", 4, Constraints{Level: lang.LevelA2, Modality: lang.ModalityGrammar})
	require.NoError(t, err)
	require.Len(t, b.Items, 4)
	for _, it := range b.Items {
		assert.Contains(t, []string{"accusative", "aspect"}, it.TopicID)
		assert.Empty(t, it.WordID)
	}

	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answersFor(b, map[int]bool{0: true}))
	require.NoError(t, err)

	progress, err := h.store.Topics().ListProgress(ctx, "ana")
	require.NoError(t, err)
	practiced := 0
	for _, p := range progress {
		practiced += p.TimesPracticed
	}
	assert.Equal(t, 4, practiced)

	hist, err := h.store.History().Query(ctx, "ana", store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, hist, 4)
	assert.Equal(t, store.ReviewKindTopic, hist[0].Kind)
	assert.Equal(t, b.Items[0].ID, hist[0].SubjectID)
}

func TestGenerateBatch_CountBounds(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	for _, n := range []int{0, 2, 21} {
		_, err := h.coord.GenerateBatch(context.Background(), "ana", n, vocab(""))
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "count %d: err = %v", n, err)
	}
	assert.Equal(t, 0, h.gen.generateCalls)
}

func TestGenerateBatch_RejectsSecondOpenBatch(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 3)
	h.addWords(t, "ben", lang.LevelA1, 3)

	_, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)

	_, err = h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	assert.ErrorIs(t, err, ErrBatchInProgress)

	_, err = h.coord.GenerateBatch(ctx, "ben", 3, vocab(""))
	assert.NoError(t, err, "owners are independent")
}

func TestGenerateBatch_RejectsWhileGenerating(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.addWords(t, "ana", lang.LevelA1, 3)
	h.gen.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.coord.GenerateBatch(context.Background(), "ana", 3, vocab(""))
		done <- err
	}()

	require.Eventually(t, func() bool {
		b, ok := h.coord.Current("ana")
		return ok && b.State == StateGenerating
	}, time.Second, 5*time.Millisecond)

	_, err := h.coord.GenerateBatch(context.Background(), "ana", 3, vocab(""))
	assert.ErrorIs(t, err, ErrBatchInProgress)
	assert.ErrorIs(t, h.coord.Discard("ana"), ErrBatchInProgress)

	close(h.gen.block)
	require.NoError(t, <-done)
}

func TestGenerateBatch_PartialBatchNotPadded(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	words := h.addWords(t, "ana", lang.LevelA1, 5)
	h.gen.dropSeeds = map[string]bool{words[0].ID: true, words[2].ID: true}

	b, err := h.coord.GenerateBatch(context.Background(), "ana", 5, vocab(""))
	require.NoError(t, err)
	assert.Len(t, b.Items, 3)
}

type learnerStub struct {
	text   string
	err    error
	owners []string
}

func (l *learnerStub) LearnerContext(_ context.Context, owner string) (string, error) {
	l.owners = append(l.owners, owner)
	return l.text, l.err
}

func TestGenerateBatch_PassesLearnerContext(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 3)
	learner := &learnerStub{text: "Common mistakes: case (4)."}
	h.coord.UseLearnerContext(learner)

	_, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"ana"}, learner.owners)
	assert.Equal(t, "Common mistakes: case (4).", h.gen.lastRequest.LearnerContext)
}

func TestGenerateBatch_LearnerContextFailureTolerated(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 3)
	h.coord.UseLearnerContext(&learnerStub{text: "ignored", err: errors.New("report unavailable")})

	b, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)
	assert.Len(t, b.Items, 3)
	assert.Empty(t, h.gen.lastRequest.LearnerContext)
}

func TestGenerateBatch_RepeatedWordSeedDropped(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	words := h.addWords(t, "ana", lang.LevelA1, 3)
	h.gen.reseed = map[string]string{words[1].ID: words[0].ID}

	b, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)
	require.Len(t, b.Items, 2)
	assert.Equal(t, words[0].ID, b.Items[0].WordID)
	assert.Equal(t, words[2].ID, b.Items[1].WordID)

	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answersFor(b, nil))
	require.NoError(t, err)

	for _, w := range h.snapshot(t, "ana") {
		assert.LessOrEqual(t, w.Attempts(), 1, "word %s updated twice", w.ID)
		if w.ID == words[0].ID {
			assert.Equal(t, 1, w.CorrectStreak)
			assert.Equal(t, 1, w.IntervalDays)
		}
	}
	hist, err := h.store.History().Query(ctx, "ana", store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestGenerateBatch_PrefersDueWords(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	words := h.addWords(t, "ana", lang.LevelA1, 6)

	// Make the last word due.
	_, err := h.sched.Review(ctx, "ana", words[5].ID, spacedrep.Outcome{Correct: true})
	require.NoError(t, err)
	h.coord.SetClock(func() time.Time { return t0.AddDate(0, 0, 2) })

	b, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)
	assert.Equal(t, words[5].ID, b.Items[0].WordID)
}

func TestGenerateBatch_NothingToPractice(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	_, err := h.coord.GenerateBatch(context.Background(), "ana", 3, vocab(""))
	assert.ErrorIs(t, err, ErrNothingToPractice)
	_, open := h.coord.Current("ana")
	assert.False(t, open)
}

func TestGenerateBatch_TimeoutFailsAndFrees(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GenerateTimeout = 20 * time.Millisecond
	h := newHarness(t, cfg)
	h.addWords(t, "ana", lang.LevelA1, 3)
	h.gen.block = make(chan struct{})

	var transitions []string
	h.coord.OnTransition(func(_, _ string, from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	})

	_, err := h.coord.GenerateBatch(context.Background(), "ana", 3, vocab(""))
	assert.ErrorIs(t, err, contentgen.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"idle>generating", "generating>failed", "failed>idle"}, transitions)

	_, open := h.coord.Current("ana")
	assert.False(t, open)

	close(h.gen.block)
	_, err = h.coord.GenerateBatch(context.Background(), "ana", 3, vocab(""))
	assert.NoError(t, err)
}

func TestEvaluateBatch_MismatchLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 4)

	b, err := h.coord.GenerateBatch(ctx, "ana", 4, vocab(""))
	require.NoError(t, err)
	before := h.snapshot(t, "ana")

	answers := answersFor(b, nil)
	tests := []struct {
		name    string
		answers []Answer
		check   func(*testing.T, *BatchMismatchError)
	}{
		{"missing", answers[:3], func(t *testing.T, e *BatchMismatchError) {
			assert.Equal(t, []string{b.Items[3].ID}, e.Missing)
		}},
		{"unexpected", append(append([]Answer(nil), answers...), Answer{ExerciseID: "bogus"}), func(t *testing.T, e *BatchMismatchError) {
			assert.Equal(t, []string{"bogus"}, e.Unexpected)
		}},
		{"duplicate", append(append([]Answer(nil), answers[:3]...), answers[0]), func(t *testing.T, e *BatchMismatchError) {
			assert.Equal(t, []string{b.Items[0].ID}, e.Duplicate)
			assert.Equal(t, []string{b.Items[3].ID}, e.Missing)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.coord.EvaluateBatch(ctx, "ana", b.ID, tt.answers)
			var mm *BatchMismatchError
			require.True(t, errors.As(err, &mm), "err = %v", err)
			tt.check(t, mm)
		})
	}

	assert.Equal(t, before, h.snapshot(t, "ana"), "mismatch must not mutate words")
	assert.Equal(t, 0, h.gen.evaluateCalls)
	cur, ok := h.coord.Current("ana")
	require.True(t, ok)
	assert.Equal(t, StateAwaitingAnswers, cur.State)

	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answers)
	assert.NoError(t, err, "a correct resubmission still succeeds")
}

func TestEvaluateBatch_NegativeLatencyRejected(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 3)
	b, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)

	answers := answersFor(b, nil)
	answers[1].Latency = -time.Second
	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answers)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	cur, ok := h.coord.Current("ana")
	require.True(t, ok)
	assert.Equal(t, StateAwaitingAnswers, cur.State)
}

func TestEvaluateBatch_EvaluatorFailureAppliesNothing(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 3)
	b, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)
	before := h.snapshot(t, "ana")

	h.gen.evaluateErr = fmt.Errorf("evaluate answers: %w", contentgen.ErrMalformedResponse)
	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answersFor(b, nil))
	assert.ErrorIs(t, err, contentgen.ErrMalformedResponse)

	assert.Equal(t, before, h.snapshot(t, "ana"))
	_, open := h.coord.Current("ana")
	assert.False(t, open, "failed batch is discarded")

	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answersFor(b, nil))
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestEvaluateBatch_EvaluatorTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EvaluateTimeout = 20 * time.Millisecond
	h := newHarness(t, cfg)
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 3)
	b, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)

	h.gen.mu.Lock()
	h.gen.block = make(chan struct{})
	h.gen.mu.Unlock()
	defer close(h.gen.block)

	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answersFor(b, nil))
	assert.ErrorIs(t, err, contentgen.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	hist, err := h.store.History().Query(ctx, "ana", store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, hist)
}

// failingScheduler delegates to a real scheduler but fails on call n.
type failingScheduler struct {
	inner  WordScheduler
	failOn int
	calls  int
}

func (f *failingScheduler) Apply(ctx context.Context, r store.Repos, in spacedrep.ReviewInput) (*store.Word, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, store.ErrConcurrentModification
	}
	return f.inner.Apply(ctx, r, in)
}

func TestEvaluateBatch_ApplyIsAtomic(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 4)

	coord := NewCoordinator(h.store, h.gen, &failingScheduler{inner: h.sched, failOn: 3}, h.tracker, DefaultConfig(), nil)
	coord.SetClock(func() time.Time { return t0 })

	b, err := coord.GenerateBatch(ctx, "ana", 4, vocab(""))
	require.NoError(t, err)
	before := h.snapshot(t, "ana")

	_, err = coord.EvaluateBatch(ctx, "ana", b.ID, answersFor(b, nil))
	assert.ErrorIs(t, err, store.ErrConcurrentModification)

	assert.Equal(t, before, h.snapshot(t, "ana"), "first two reviews must roll back")
	hist, err := h.store.History().Query(ctx, "ana", store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestEvaluateBatch_SettledResubmission(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 3)
	b, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)

	answers := answersFor(b, nil)
	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answers)
	require.NoError(t, err)
	after := h.snapshot(t, "ana")

	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answers)
	assert.ErrorIs(t, err, ErrBatchSettled)
	assert.Equal(t, after, h.snapshot(t, "ana"), "no re-apply")
	assert.Equal(t, 1, h.gen.evaluateCalls)

	_, err = h.coord.EvaluateBatch(ctx, "ana", "never-existed", answers)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestDiscard(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	h.addWords(t, "ana", lang.LevelA1, 3)

	assert.ErrorIs(t, h.coord.Discard("ana"), ErrBatchNotFound)

	b, err := h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	require.NoError(t, err)
	require.NoError(t, h.coord.Discard("ana"))

	_, err = h.coord.EvaluateBatch(ctx, "ana", b.ID, answersFor(b, nil))
	assert.ErrorIs(t, err, ErrBatchNotFound)

	_, err = h.coord.GenerateBatch(ctx, "ana", 3, vocab(""))
	assert.NoError(t, err)
}

func TestBatchMismatchError_Message(t *testing.T) {
	err := &BatchMismatchError{BatchID: "b1", Missing: []string{"x"}, Unexpected: []string{"y", "z"}}
	msg := err.Error()
	assert.True(t, strings.Contains(msg, "missing x") && strings.Contains(msg, "unexpected y, z"), msg)
}
