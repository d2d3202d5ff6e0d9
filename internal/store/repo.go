package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/lexiz/internal/lang"
)

var (
	// ErrNotFound is returned when a keyed lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification is returned when an optimistic update finds
	// that the row changed since it was read. Re-read and retry.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// QueryOpts configures history and event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	After int64     // sequence > After
	From  time.Time // timestamp >= From
	To    time.Time // timestamp <= To
}

// Word is a vocabulary item and its spaced-repetition state.
type Word struct {
	ID           string
	Owner        string
	Native       string
	Target       string
	PartOfSpeech lang.PartOfSpeech
	Gender       lang.Gender
	Level        lang.Level

	MasteryScore  int
	EaseFactor    float64
	IntervalDays  int
	CorrectCount  int
	WrongCount    int
	CorrectStreak int

	LastReviewedAt *time.Time
	NextReviewAt   *time.Time
	CreatedAt      time.Time

	// Version is bumped on every update and checked by Update.
	Version int64
}

// Attempts returns the lifetime number of reviews.
func (w *Word) Attempts() int {
	return w.CorrectCount + w.WrongCount
}

// GrammarTopic is an entry in the global topic catalog.
type GrammarTopic struct {
	ID          string
	Name        string
	Description string
	Level       lang.Level
}

// TopicProgress is one owner's mastery of one grammar topic.
// A zero Version means the row has not been persisted yet.
type TopicProgress struct {
	Owner           string
	TopicID         string
	MasteryScore    int
	TimesPracticed  int
	LastPracticedAt *time.Time
	Version         int64
}

// ReviewKind tells which record a history entry was applied to.
type ReviewKind string

const (
	ReviewKindWord  ReviewKind = "word"
	ReviewKindTopic ReviewKind = "topic"
)

// ReviewRecord is one append-only entry of review history.
type ReviewRecord struct {
	Seq           int64
	Owner         string
	Timestamp     time.Time
	Kind          ReviewKind
	SubjectID     string
	Correct       bool
	Score         float64
	ErrorCategory lang.ErrorCategory
	TopicID       string
	PartOfSpeech  lang.PartOfSpeech
	Level         lang.Level
	LatencyMs     int64
	BatchID       string
}

// WordRepo reads and writes vocabulary items.
type WordRepo interface {
	// Create inserts w. ID and CreatedAt are assigned when empty.
	Create(ctx context.Context, w *Word) error

	// Get returns the word or ErrNotFound.
	Get(ctx context.Context, owner, id string) (*Word, error)

	// Update persists the review state of w if its Version still matches
	// the stored row, then increments w.Version. Returns
	// ErrConcurrentModification on a version mismatch.
	Update(ctx context.Context, w *Word) error

	// Due returns words with next_review_at <= now, oldest due first, ties
	// broken by lowest mastery. limit <= 0 means no limit.
	Due(ctx context.Context, owner string, now time.Time, limit int) ([]Word, error)

	// Weakest returns words at level (all levels when empty) ordered by
	// lowest mastery, then oldest.
	Weakest(ctx context.Context, owner string, level lang.Level, limit int) ([]Word, error)

	// List returns all of the owner's words in one statement, which gives
	// a consistent snapshot without holding a transaction open.
	List(ctx context.Context, owner string) ([]Word, error)

	// FindByText returns the word with the given prompt pair or ErrNotFound.
	FindByText(ctx context.Context, owner, native, target string) (*Word, error)
}

// TopicRepo reads and writes the topic catalog and per-owner progress.
type TopicRepo interface {
	// UpsertTopic inserts or replaces a catalog entry.
	UpsertTopic(ctx context.Context, t GrammarTopic) error

	// GetTopic returns the topic or ErrNotFound.
	GetTopic(ctx context.Context, id string) (*GrammarTopic, error)

	// ListTopics returns catalog entries at level (all levels when empty).
	ListTopics(ctx context.Context, level lang.Level) ([]GrammarTopic, error)

	// GetProgress returns the stored progress, or a zero-Version record
	// when the owner has never practiced the topic.
	GetProgress(ctx context.Context, owner, topicID string) (*TopicProgress, error)

	// SaveProgress inserts (Version 0) or updates p with an optimistic
	// version check, then increments p.Version.
	SaveProgress(ctx context.Context, p *TopicProgress) error

	// ListProgress returns all progress rows for owner.
	ListProgress(ctx context.Context, owner string) ([]TopicProgress, error)
}

// OutcomeTally counts the review records that share a kind, a result and
// an error category.
type OutcomeTally struct {
	Kind          ReviewKind
	Correct       bool
	ErrorCategory lang.ErrorCategory
	Count         int
}

// HistoryRepo is the append-only review log.
type HistoryRepo interface {
	// Append assigns rec.Seq and stores the record.
	Append(ctx context.Context, rec *ReviewRecord) error

	// Query returns the owner's records in sequence order.
	Query(ctx context.Context, owner string, opts QueryOpts) ([]ReviewRecord, error)

	// Tally aggregates the owner's whole history, largest groups first.
	Tally(ctx context.Context, owner string) ([]OutcomeTally, error)
}

// Repos groups repositories bound to one connection or one transaction.
type Repos interface {
	Words() WordRepo
	Topics() TopicRepo
	History() HistoryRepo
}

// Backend is the persistence boundary consumed by the engine: repositories
// plus a transaction scope.
type Backend interface {
	Repos
	WithTx(ctx context.Context, fn func(Repos) error) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	LLMRequestEventData
	Seq       int64
	Timestamp time.Time
}

// LLMUsage aggregates token usage for one purpose or model.
type LLMUsage struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)
	// GetLLMEvent returns nil when no event has the given sequence.
	GetLLMEvent(ctx context.Context, seq int64) (*LLMRequestEventRecord, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

var (
	_ Backend = (*Store)(nil)
	_ Repos   = (*txRepos)(nil)
)
