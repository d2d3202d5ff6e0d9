// Package app wires the engine's services from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/lexiz/internal/analytics"
	"github.com/abhisek/lexiz/internal/config"
	"github.com/abhisek/lexiz/internal/contentgen"
	"github.com/abhisek/lexiz/internal/exercise"
	"github.com/abhisek/lexiz/internal/importer"
	"github.com/abhisek/lexiz/internal/llm"
	"github.com/abhisek/lexiz/internal/logging"
	"github.com/abhisek/lexiz/internal/mastery"
	"github.com/abhisek/lexiz/internal/progress"
	"github.com/abhisek/lexiz/internal/spacedrep"
	"github.com/abhisek/lexiz/internal/store"
)

// ErrNoProvider is returned by Generator and Exercises when no LLM provider
// is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// App holds every service built over one store.
type App struct {
	Config config.Config
	Log    *logging.Logger
	Store  *store.Store

	Scheduler *spacedrep.Scheduler
	Tracker   *mastery.Tracker
	Analytics *analytics.Engine
	Progress  *progress.Service
	Importer  *importer.Importer

	generator   *contentgen.LLMGenerator
	coordinator *exercise.Coordinator
}

// Open validates cfg, opens the store and builds the services that do not
// need an LLM provider.
func Open(cfg config.Config, log *logging.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log = logging.OrNop(log)

	dsn := cfg.DB
	if dsn == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dsn = p
	} else if !strings.Contains(dsn, "://") {
		if err := store.EnsureDir(dsn); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	st, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	eng := analytics.NewEngine(st, cfg.Analytics, log)
	eng.SetScoring(cfg.Scheduler)
	tracker := mastery.NewTracker(st, cfg.Mastery, nil, log)

	return &App{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Scheduler: spacedrep.NewScheduler(st, cfg.Scheduler, log),
		Tracker:   tracker,
		Analytics: eng,
		Progress:  progress.NewService(st, tracker, cfg.Progress, log),
		Importer:  importer.New(st, log),
	}, nil
}

// Generator returns the content generator, building the LLM provider on
// first use. Provider calls are recorded as events in the store.
func (a *App) Generator(ctx context.Context) (*contentgen.LLMGenerator, error) {
	if a.generator != nil {
		return a.generator, nil
	}
	if err := a.Config.LLM.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
	}
	provider, err := llm.NewProvider(ctx, a.Config.LLM, a.Store.EventRepo(), a.Log)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	a.Log.Debug("llm provider ready", "provider", provider.Name(), "model", provider.ModelID())

	a.generator = contentgen.New(provider, a.Config.Content, a.Log)
	return a.generator, nil
}

// Exercises returns the batch coordinator. Generate requests carry the
// owner's progress profile.
func (a *App) Exercises(ctx context.Context) (*exercise.Coordinator, error) {
	if a.coordinator != nil {
		return a.coordinator, nil
	}
	gen, err := a.Generator(ctx)
	if err != nil {
		return nil, err
	}
	a.coordinator = exercise.NewCoordinator(a.Store, gen, a.Scheduler, a.Tracker, a.Config.Exercise, a.Log)
	a.coordinator.UseLearnerContext(a.Progress)
	return a.coordinator, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
