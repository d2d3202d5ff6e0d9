package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type llmEventRow struct {
	Seq          int64  `db:"seq"`
	Ts           int64  `db:"ts"`
	Provider     string `db:"provider"`
	Model        string `db:"model"`
	Purpose      string `db:"purpose"`
	InputTokens  int    `db:"input_tokens"`
	OutputTokens int    `db:"output_tokens"`
	LatencyMs    int64  `db:"latency_ms"`
	Success      bool   `db:"success"`
	ErrorMessage string `db:"error_message"`
	RequestBody  string `db:"request_body"`
	ResponseBody string `db:"response_body"`
}

func (r llmEventRow) toRecord() LLMRequestEventRecord {
	return LLMRequestEventRecord{
		Seq:       r.Seq,
		Timestamp: fromMillis(r.Ts),
		LLMRequestEventData: LLMRequestEventData{
			Provider:     r.Provider,
			Model:        r.Model,
			Purpose:      r.Purpose,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			LatencyMs:    r.LatencyMs,
			Success:      r.Success,
			ErrorMessage: r.ErrorMessage,
			RequestBody:  r.RequestBody,
			ResponseBody: r.ResponseBody,
		},
	}
}

const llmEventColumns = `seq, ts, provider, model, purpose, input_tokens, output_tokens,
	latency_ms, success, error_message, request_body, response_body`

// eventRepo implements EventRepo backed by the global sequence counter.
type eventRepo struct {
	q   sqlx.ExtContext
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx, r.q)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.q.ExecContext(ctx, r.q.Rebind(`INSERT INTO llm_request_events (`+llmEventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		seqNum, toMillis(time.Now()), data.Provider, data.Model, data.Purpose,
		data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success,
		data.ErrorMessage, data.RequestBody, data.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// QueryLLMEvents returns events newest first.
func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error) {
	query := `SELECT ` + llmEventColumns + ` FROM llm_request_events WHERE 1 = 1`
	var args []any
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
	query += ` ORDER BY seq DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []llmEventRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	out := make([]LLMRequestEventRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toRecord()
	}
	return out, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, seq int64) (*LLMRequestEventRecord, error) {
	var row llmEventRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(
		`SELECT `+llmEventColumns+` FROM llm_request_events WHERE seq = ?`), seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	rec := row.toRecord()
	return &rec, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usageBy(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usageBy(ctx, "model")
}

// usageBy aggregates token usage grouped by column, which must be one of
// the fixed column names above.
func (r *eventRepo) usageBy(ctx context.Context, column string) ([]LLMUsage, error) {
	var rows []struct {
		Key          string  `db:"k"`
		Calls        int     `db:"calls"`
		InputTokens  int64   `db:"input_tokens"`
		OutputTokens int64   `db:"output_tokens"`
		AvgLatencyMs float64 `db:"avg_latency_ms"`
	}
	query := fmt.Sprintf(`SELECT %s AS k, COUNT(*) AS calls,
			COALESCE(SUM(input_tokens), 0) AS input_tokens,
			COALESCE(SUM(output_tokens), 0) AS output_tokens,
			COALESCE(AVG(latency_ms), 0) AS avg_latency_ms
		FROM llm_request_events GROUP BY %s ORDER BY calls DESC, k ASC`, column, column)
	if err := sqlx.SelectContext(ctx, r.q, &rows, query); err != nil {
		return nil, fmt.Errorf("aggregate LLM usage by %s: %w", column, err)
	}

	out := make([]LLMUsage, len(rows))
	for i, row := range rows {
		out[i] = LLMUsage{
			Key:          row.Key,
			Calls:        row.Calls,
			InputTokens:  int(row.InputTokens),
			OutputTokens: int(row.OutputTokens),
			AvgLatencyMs: int64(row.AvgLatencyMs),
		}
	}
	return out, nil
}
