package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// sequenceCounter hands out the global monotonic sequence shared by the
// review history and the LLM event log. Both are append-only tables whose
// rows need a single cross-table ordering, so neither uses its own
// auto-increment key.
//
// Next runs on whatever executor the caller holds: a history append inside
// a transaction takes its sequence number inside that transaction, and a
// rollback releases it. The UPDATE ... RETURNING is atomic in both SQLite
// and Postgres, so there is no in-process lock. Holding one here would
// stall behind a writer's transaction lock.
type sequenceCounter struct{}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var seq int64
	err := q.QueryRowxContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
