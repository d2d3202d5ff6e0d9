package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/abhisek/lexiz/internal/lang"
)

type topicRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Level       string `db:"level"`
}

func (r topicRow) toTopic() GrammarTopic {
	return GrammarTopic{ID: r.ID, Name: r.Name, Description: r.Description, Level: lang.Level(r.Level)}
}

type progressRow struct {
	Owner           string        `db:"owner"`
	TopicID         string        `db:"topic_id"`
	MasteryScore    int           `db:"mastery_score"`
	TimesPracticed  int           `db:"times_practiced"`
	LastPracticedAt sql.NullInt64 `db:"last_practiced_at"`
	Version         int64         `db:"version"`
}

func (r progressRow) toProgress() TopicProgress {
	return TopicProgress{
		Owner:           r.Owner,
		TopicID:         r.TopicID,
		MasteryScore:    r.MasteryScore,
		TimesPracticed:  r.TimesPracticed,
		LastPracticedAt: fromNullMillis(r.LastPracticedAt),
		Version:         r.Version,
	}
}

// topicRepo implements TopicRepo on a database handle or transaction.
type topicRepo struct {
	q sqlx.ExtContext
}

func (r *topicRepo) UpsertTopic(ctx context.Context, t GrammarTopic) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`INSERT INTO grammar_topics (id, name, description, level)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, description = excluded.description, level = excluded.level`),
		t.ID, t.Name, t.Description, string(t.Level))
	if err != nil {
		return fmt.Errorf("upsert topic %s: %w", t.ID, err)
	}
	return nil
}

func (r *topicRepo) GetTopic(ctx context.Context, id string) (*GrammarTopic, error) {
	var row topicRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(
		`SELECT id, name, description, level FROM grammar_topics WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	t := row.toTopic()
	return &t, nil
}

func (r *topicRepo) ListTopics(ctx context.Context, level lang.Level) ([]GrammarTopic, error) {
	query := `SELECT id, name, description, level FROM grammar_topics`
	var args []any
	if level != "" {
		query += ` WHERE level = ?`
		args = append(args, string(level))
	}
	query += ` ORDER BY id ASC`

	var rows []topicRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	out := make([]GrammarTopic, len(rows))
	for i, row := range rows {
		out[i] = row.toTopic()
	}
	return out, nil
}

const progressColumns = `owner, topic_id, mastery_score, times_practiced, last_practiced_at, version`

func (r *topicRepo) GetProgress(ctx context.Context, owner, topicID string) (*TopicProgress, error) {
	var row progressRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(
		`SELECT `+progressColumns+` FROM topic_progress WHERE owner = ? AND topic_id = ?`), owner, topicID)
	if errors.Is(err, sql.ErrNoRows) {
		return &TopicProgress{Owner: owner, TopicID: topicID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topic progress: %w", err)
	}
	p := row.toProgress()
	return &p, nil
}

func (r *topicRepo) SaveProgress(ctx context.Context, p *TopicProgress) error {
	var (
		res sql.Result
		err error
	)
	if p.Version == 0 {
		// Lazily created on first practice. A conflict means another writer
		// created the row after our read.
		res, err = r.q.ExecContext(ctx, r.q.Rebind(`INSERT INTO topic_progress (`+progressColumns+`)
			VALUES (?, ?, ?, ?, ?, 1)
			ON CONFLICT (owner, topic_id) DO NOTHING`),
			p.Owner, p.TopicID, p.MasteryScore, p.TimesPracticed, toNullMillis(p.LastPracticedAt))
	} else {
		res, err = r.q.ExecContext(ctx, r.q.Rebind(`UPDATE topic_progress SET
				mastery_score = ?, times_practiced = ?, last_practiced_at = ?, version = version + 1
			WHERE owner = ? AND topic_id = ? AND version = ?`),
			p.MasteryScore, p.TimesPracticed, toNullMillis(p.LastPracticedAt),
			p.Owner, p.TopicID, p.Version)
	}
	if err != nil {
		return fmt.Errorf("save topic progress: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save topic progress: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("topic %s for %s at version %d: %w", p.TopicID, p.Owner, p.Version, ErrConcurrentModification)
	}
	p.Version++
	return nil
}

func (r *topicRepo) ListProgress(ctx context.Context, owner string) ([]TopicProgress, error) {
	var rows []progressRow
	err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(
		`SELECT `+progressColumns+` FROM topic_progress WHERE owner = ? ORDER BY topic_id ASC`), owner)
	if err != nil {
		return nil, fmt.Errorf("list topic progress: %w", err)
	}
	out := make([]TopicProgress, len(rows))
	for i, row := range rows {
		out[i] = row.toProgress()
	}
	return out, nil
}
