package analytics

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/spacedrep"
	"github.com/abhisek/lexiz/internal/store"
)

func TestEngine_FullUsesOneSnapshot(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	sched := spacedrep.NewScheduler(s, spacedrep.DefaultConfig(), nil)
	sched.SetClock(func() time.Time { return now.AddDate(0, 0, -3) })

	var ids []string
	for i := 0; i < 6; i++ {
		w := &store.Word{
			Owner:        "ana",
			Native:       fmt.Sprintf("word %d", i),
			Target:       fmt.Sprintf("riječ %d", i),
			PartOfSpeech: lang.Verb,
			Level:        lang.LevelA2,
			CreatedAt:    now.AddDate(0, 0, -1),
		}
		require.NoError(t, s.Words().Create(ctx, w))
		ids = append(ids, w.ID)
	}
	// The first word becomes a leech: 3 wrong, 2 right.
	for _, correct := range []bool{false, true, false, true, false} {
		_, err := sched.Review(ctx, "ana", ids[0], spacedrep.Outcome{Correct: correct})
		require.NoError(t, err)
	}
	_, err = sched.Review(ctx, "ana", ids[1], spacedrep.Outcome{Correct: true})
	require.NoError(t, err)

	// Someone else's words never show up.
	require.NoError(t, s.Words().Create(ctx, &store.Word{Owner: "ben", Native: "x", Target: "y", Level: lang.LevelA1}))

	engine := NewEngine(s, DefaultConfig(), nil)
	engine.SetClock(func() time.Time { return now })

	full, err := engine.Full(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 6, full.Words)
	assert.Equal(t, now, full.At)

	require.Equal(t, 1, full.Leeches.Total)
	assert.Equal(t, ids[0], full.Leeches.Leeches[0].Word.ID)

	// Two reviewed words are scheduled; the rest have no due date.
	assert.Equal(t, 2, full.Forecast.Scheduled)
	assert.Equal(t, full.Forecast.Scheduled, full.Forecast.Upcoming()+full.Forecast.Overdue+full.Forecast.Later)

	assert.Equal(t, 6, full.Velocity.AddedThisWeek)
	assert.InDelta(t, 3.0/6.0, full.Velocity.RetentionRate, 1e-9)

	require.Len(t, full.Difficulty.ByPartOfSpeech, 1)
	assert.Equal(t, lang.Verb, full.Difficulty.HardestPOS)
	assert.Equal(t, lang.LevelA2, full.Difficulty.HardestLevel)

	single, err := engine.Leeches(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, full.Leeches, single)
}

func TestEngine_EmptyOwner(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	engine := NewEngine(s, DefaultConfig(), nil)
	engine.SetClock(func() time.Time { return now })

	full, err := engine.Full(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, full.Words)
	assert.Zero(t, full.Leeches.Total)
	assert.Len(t, full.Forecast.Days, 7)
	assert.Equal(t, TrendStable, full.Velocity.Trend)
	assert.Empty(t, full.Difficulty.HardestPOS)
}

func TestEngine_MasteredThisWeekFromHistory(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "velocity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	add := func(native string) string {
		w := &store.Word{Owner: "ana", Native: native, Target: native + "-hr", PartOfSpeech: lang.Noun, Level: lang.LevelA1, CreatedAt: now.AddDate(0, -3, 0)}
		require.NoError(t, s.Words().Create(ctx, w))
		return w.ID
	}
	veteran := add("veteran")
	newcomer := add("newcomer")

	var clock time.Time
	sched := spacedrep.NewScheduler(s, spacedrep.DefaultConfig(), nil)
	sched.SetClock(func() time.Time { return clock })
	review := func(id string, times int, start time.Time) {
		for i := 0; i < times; i++ {
			clock = start.AddDate(0, 0, i)
			_, err := sched.Review(ctx, "ana", id, spacedrep.Outcome{Correct: true})
			require.NoError(t, err)
		}
	}
	february := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	review(veteran, 11, february)
	review(newcomer, 6, february)
	// Tuesday of the reporting week.
	review(veteran, 1, now.AddDate(0, 0, -1))
	review(newcomer, 1, now.AddDate(0, 0, -1))

	engine := NewEngine(s, DefaultConfig(), nil)
	engine.SetClock(func() time.Time { return now })
	engine.SetScoring(spacedrep.DefaultConfig())

	r, err := engine.Velocity(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 2, r.MasteredTotal)
	assert.Equal(t, 1, r.MasteredThisWeek, "only the newcomer crossed the threshold this week")
}
