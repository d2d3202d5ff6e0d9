package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/abhisek/lexiz/internal/lang"
)

type historyRow struct {
	Seq           int64   `db:"seq"`
	Owner         string  `db:"owner"`
	Ts            int64   `db:"ts"`
	Kind          string  `db:"kind"`
	SubjectID     string  `db:"subject_id"`
	Correct       bool    `db:"correct"`
	Score         float64 `db:"score"`
	ErrorCategory string  `db:"error_category"`
	TopicID       string  `db:"topic_id"`
	PartOfSpeech  string  `db:"part_of_speech"`
	Level         string  `db:"level"`
	LatencyMs     int64   `db:"latency_ms"`
	BatchID       string  `db:"batch_id"`
}

const historyColumns = `seq, owner, ts, kind, subject_id, correct, score, error_category,
	topic_id, part_of_speech, level, latency_ms, batch_id`

// historyRepo implements HistoryRepo on a database handle or transaction.
type historyRepo struct {
	q   sqlx.ExtContext
	seq *sequenceCounter
}

func (r *historyRepo) Append(ctx context.Context, rec *ReviewRecord) error {
	seqNum, err := r.seq.Next(ctx, r.q)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, r.q.Rebind(`INSERT INTO review_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		seqNum, rec.Owner, toMillis(rec.Timestamp), string(rec.Kind), rec.SubjectID,
		rec.Correct, rec.Score, string(rec.ErrorCategory), rec.TopicID,
		string(rec.PartOfSpeech), string(rec.Level), rec.LatencyMs, rec.BatchID,
	)
	if err != nil {
		return fmt.Errorf("append review record: %w", err)
	}
	rec.Seq = seqNum
	return nil
}

func (r *historyRepo) Query(ctx context.Context, owner string, opts QueryOpts) ([]ReviewRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM review_history WHERE owner = ?`
	args := []any{owner}
	if opts.After > 0 {
		query += ` AND seq > ?`
		args = append(args, opts.After)
	}
	if !opts.From.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, toMillis(opts.From))
	}
	if !opts.To.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, toMillis(opts.To))
	}
	query += ` ORDER BY seq ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []historyRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query review history: %w", err)
	}

	out := make([]ReviewRecord, len(rows))
	for i, row := range rows {
		out[i] = ReviewRecord{
			Seq:           row.Seq,
			Owner:         row.Owner,
			Timestamp:     fromMillis(row.Ts),
			Kind:          ReviewKind(row.Kind),
			SubjectID:     row.SubjectID,
			Correct:       row.Correct,
			Score:         row.Score,
			ErrorCategory: lang.ErrorCategory(row.ErrorCategory),
			TopicID:       row.TopicID,
			PartOfSpeech:  lang.PartOfSpeech(row.PartOfSpeech),
			Level:         lang.Level(row.Level),
			LatencyMs:     row.LatencyMs,
			BatchID:       row.BatchID,
		}
	}
	return out, nil
}

func (r *historyRepo) Tally(ctx context.Context, owner string) ([]OutcomeTally, error) {
	var rows []struct {
		Kind          string `db:"kind"`
		Correct       bool   `db:"correct"`
		ErrorCategory string `db:"error_category"`
		N             int    `db:"n"`
	}
	query := `SELECT kind, correct, error_category, COUNT(*) AS n
		FROM review_history WHERE owner = ?
		GROUP BY kind, correct, error_category
		ORDER BY n DESC, kind ASC, error_category ASC`
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), owner); err != nil {
		return nil, fmt.Errorf("tally review history: %w", err)
	}

	out := make([]OutcomeTally, len(rows))
	for i, row := range rows {
		out[i] = OutcomeTally{
			Kind:          ReviewKind(row.Kind),
			Correct:       row.Correct,
			ErrorCategory: lang.ErrorCategory(row.ErrorCategory),
			Count:         row.N,
		}
	}
	return out, nil
}
