package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/lexiz/internal/logging"
	"github.com/abhisek/lexiz/internal/spacedrep"
	"github.com/abhisek/lexiz/internal/store"
)

// Engine serves the read-only reports. It never takes part in a write
// transaction; each call reads one snapshot.
type Engine struct {
	backend store.Backend
	config  Config
	scoring spacedrep.Config
	now     func() time.Time
	log     *logging.Logger
}

// Report bundles all four reports computed from the same snapshot.
type Report struct {
	Leeches    LeechReport
	Forecast   ForecastReport
	Velocity   VelocityReport
	Difficulty DifficultyReport
	Words      int
	At         time.Time
}

// NewEngine creates an analytics engine.
func NewEngine(backend store.Backend, cfg Config, log *logging.Logger) *Engine {
	return &Engine{
		backend: backend,
		config:  cfg,
		scoring: spacedrep.DefaultConfig(),
		now:     func() time.Time { return time.Now().UTC() },
		log:     logging.OrNop(log).With("component", "analytics"),
	}
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetScoring sets the scheduler settings used to tell when a word's
// streak made it mastered.
func (e *Engine) SetScoring(cfg spacedrep.Config) {
	e.scoring = cfg
}

// Config returns the engine's thresholds.
func (e *Engine) Config() Config {
	return e.config
}

// snapshot reads the owner's words, then the reviews since the start of
// the current ISO week.
func (e *Engine) snapshot(ctx context.Context, owner string) (*Snapshot, error) {
	loc, err := e.config.location()
	if err != nil {
		return nil, err
	}
	s, err := LoadSnapshot(ctx, e.backend.Words(), owner, e.now())
	if err != nil {
		return nil, err
	}
	if err := s.LoadReviews(ctx, e.backend.History(), startOfISOWeek(s.Now, loc)); err != nil {
		return nil, err
	}
	scoring := e.scoring
	s.MasteryOf = func(streak int) int {
		return spacedrep.MasteryFromStreak(streak, scoring.RequiredStreak, scoring.MaxMastery)
	}
	return s, nil
}

func (e *Engine) Leeches(ctx context.Context, owner string) (LeechReport, error) {
	s, err := e.snapshot(ctx, owner)
	if err != nil {
		return LeechReport{}, err
	}
	return Leeches(s, e.config), nil
}

func (e *Engine) Forecast(ctx context.Context, owner string) (ForecastReport, error) {
	s, err := e.snapshot(ctx, owner)
	if err != nil {
		return ForecastReport{}, err
	}
	return Forecast(s, e.config)
}

func (e *Engine) Velocity(ctx context.Context, owner string) (VelocityReport, error) {
	s, err := e.snapshot(ctx, owner)
	if err != nil {
		return VelocityReport{}, err
	}
	return Velocity(s, e.config)
}

func (e *Engine) Difficulty(ctx context.Context, owner string) (DifficultyReport, error) {
	s, err := e.snapshot(ctx, owner)
	if err != nil {
		return DifficultyReport{}, err
	}
	return Difficulty(s, e.config), nil
}

// Full loads one snapshot and computes every report from it concurrently.
func (e *Engine) Full(ctx context.Context, owner string) (*Report, error) {
	s, err := e.snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}

	r := &Report{Words: len(s.Words), At: s.Now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.Leeches = Leeches(s, e.config)
		return gctx.Err()
	})
	g.Go(func() error {
		var err error
		r.Forecast, err = Forecast(s, e.config)
		return err
	})
	g.Go(func() error {
		var err error
		r.Velocity, err = Velocity(s, e.config)
		return err
	})
	g.Go(func() error {
		r.Difficulty = Difficulty(s, e.config)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.Debug("analytics computed",
		"owner", owner,
		"words", r.Words,
		"leeches", r.Leeches.Total,
		"scheduled", r.Forecast.Scheduled,
	)
	return r, nil
}
