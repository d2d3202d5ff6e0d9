package progress

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/lexiz/internal/logging"
	"github.com/abhisek/lexiz/internal/mastery"
	"github.com/abhisek/lexiz/internal/store"
)

// TopicLister lists the catalog joined with an owner's topic progress.
type TopicLister interface {
	Progress(ctx context.Context, owner string) ([]mastery.TopicStatus, error)
}

// Service assembles progress reports from the store. Like the analytics
// engine it only reads and never opens a transaction.
type Service struct {
	backend store.Backend
	topics  TopicLister
	config  Config
	now     func() time.Time
	log     *logging.Logger
}

func NewService(backend store.Backend, topics TopicLister, cfg Config, log *logging.Logger) *Service {
	return &Service{
		backend: backend,
		topics:  topics,
		config:  cfg,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logging.OrNop(log).With("component", "progress"),
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Config() Config {
	return s.config
}

// Report loads the owner's words, topics, outcome tally and the reviews of
// the streak window concurrently, then builds the report.
func (s *Service) Report(ctx context.Context, owner string) (*Report, error) {
	loc, err := s.config.location()
	if err != nil {
		return nil, err
	}
	in := Inputs{Owner: owner, Now: s.now()}
	since := startOfDay(in.Now.In(loc)).AddDate(0, 0, -(s.config.StreakWindowDays - 1))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if in.Words, err = s.backend.Words().List(gctx, owner); err != nil {
			return fmt.Errorf("list words: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if in.Topics, err = s.topics.Progress(gctx, owner); err != nil {
			return fmt.Errorf("topic progress: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if in.Tally, err = s.backend.History().Tally(gctx, owner); err != nil {
			return fmt.Errorf("tally history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.Recent, err = s.backend.History().Query(gctx, owner, store.QueryOpts{From: since, To: in.Now})
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r, err := Build(in, s.config)
	if err != nil {
		return nil, err
	}
	s.log.Debug("progress computed",
		"owner", owner,
		"words", r.Summary.TotalWords,
		"streak", r.Summary.StreakDays,
		"level", r.Summary.Level,
	)
	return r, nil
}

// LearnerContext renders the owner's report as a short profile for the
// exercise generator.
func (s *Service) LearnerContext(ctx context.Context, owner string) (string, error) {
	r, err := s.Report(ctx, owner)
	if err != nil {
		return "", err
	}
	return RenderContext(r)
}
