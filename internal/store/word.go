package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/abhisek/lexiz/internal/lang"
)

const wordColumns = `id, owner, native, target, part_of_speech, gender, level,
	mastery_score, ease_factor, interval_days, correct_count, wrong_count,
	correct_streak, last_reviewed_at, next_review_at, created_at, version`

// wordRow is the storage shape of a Word.
type wordRow struct {
	ID             string        `db:"id"`
	Owner          string        `db:"owner"`
	Native         string        `db:"native"`
	Target         string        `db:"target"`
	PartOfSpeech   string        `db:"part_of_speech"`
	Gender         string        `db:"gender"`
	Level          string        `db:"level"`
	MasteryScore   int           `db:"mastery_score"`
	EaseFactor     float64       `db:"ease_factor"`
	IntervalDays   int           `db:"interval_days"`
	CorrectCount   int           `db:"correct_count"`
	WrongCount     int           `db:"wrong_count"`
	CorrectStreak  int           `db:"correct_streak"`
	LastReviewedAt sql.NullInt64 `db:"last_reviewed_at"`
	NextReviewAt   sql.NullInt64 `db:"next_review_at"`
	CreatedAt      int64         `db:"created_at"`
	Version        int64         `db:"version"`
}

func (r wordRow) toWord() Word {
	return Word{
		ID:             r.ID,
		Owner:          r.Owner,
		Native:         r.Native,
		Target:         r.Target,
		PartOfSpeech:   lang.PartOfSpeech(r.PartOfSpeech),
		Gender:         lang.Gender(r.Gender),
		Level:          lang.Level(r.Level),
		MasteryScore:   r.MasteryScore,
		EaseFactor:     r.EaseFactor,
		IntervalDays:   r.IntervalDays,
		CorrectCount:   r.CorrectCount,
		WrongCount:     r.WrongCount,
		CorrectStreak:  r.CorrectStreak,
		LastReviewedAt: fromNullMillis(r.LastReviewedAt),
		NextReviewAt:   fromNullMillis(r.NextReviewAt),
		CreatedAt:      fromMillis(r.CreatedAt),
		Version:        r.Version,
	}
}

func toWords(rows []wordRow) []Word {
	out := make([]Word, len(rows))
	for i, r := range rows {
		out[i] = r.toWord()
	}
	return out
}

// wordRepo implements WordRepo on a database handle or transaction.
type wordRepo struct {
	q sqlx.ExtContext
}

func (r *wordRepo) Create(ctx context.Context, w *Word) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	if w.EaseFactor == 0 {
		w.EaseFactor = 2.5
	}
	w.Version = 1

	_, err := r.q.ExecContext(ctx, r.q.Rebind(`INSERT INTO words (`+wordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		w.ID, w.Owner, w.Native, w.Target, string(w.PartOfSpeech), string(w.Gender), string(w.Level),
		w.MasteryScore, w.EaseFactor, w.IntervalDays, w.CorrectCount, w.WrongCount,
		w.CorrectStreak, toNullMillis(w.LastReviewedAt), toNullMillis(w.NextReviewAt),
		toMillis(w.CreatedAt), w.Version,
	)
	if err != nil {
		return fmt.Errorf("insert word: %w", err)
	}
	return nil
}

func (r *wordRepo) Get(ctx context.Context, owner, id string) (*Word, error) {
	var row wordRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(
		`SELECT `+wordColumns+` FROM words WHERE owner = ? AND id = ?`), owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("word %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get word: %w", err)
	}
	w := row.toWord()
	return &w, nil
}

func (r *wordRepo) Update(ctx context.Context, w *Word) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`UPDATE words SET
			mastery_score = ?, ease_factor = ?, interval_days = ?,
			correct_count = ?, wrong_count = ?, correct_streak = ?,
			last_reviewed_at = ?, next_review_at = ?, version = version + 1
		WHERE owner = ? AND id = ? AND version = ?`),
		w.MasteryScore, w.EaseFactor, w.IntervalDays,
		w.CorrectCount, w.WrongCount, w.CorrectStreak,
		toNullMillis(w.LastReviewedAt), toNullMillis(w.NextReviewAt),
		w.Owner, w.ID, w.Version,
	)
	if err != nil {
		return fmt.Errorf("update word: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update word: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, w.Owner, w.ID); err != nil {
			return err
		}
		return fmt.Errorf("word %s at version %d: %w", w.ID, w.Version, ErrConcurrentModification)
	}
	w.Version++
	return nil
}

func (r *wordRepo) Due(ctx context.Context, owner string, now time.Time, limit int) ([]Word, error) {
	query := `SELECT ` + wordColumns + ` FROM words
		WHERE owner = ? AND next_review_at IS NOT NULL AND next_review_at <= ?
		ORDER BY next_review_at ASC, mastery_score ASC, id ASC`
	args := []any{owner, toMillis(now)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []wordRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query due words: %w", err)
	}
	return toWords(rows), nil
}

func (r *wordRepo) Weakest(ctx context.Context, owner string, level lang.Level, limit int) ([]Word, error) {
	query := `SELECT ` + wordColumns + ` FROM words WHERE owner = ?`
	args := []any{owner}
	if level != "" {
		query += ` AND level = ?`
		args = append(args, string(level))
	}
	query += ` ORDER BY mastery_score ASC, created_at ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []wordRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query weakest words: %w", err)
	}
	return toWords(rows), nil
}

func (r *wordRepo) List(ctx context.Context, owner string) ([]Word, error) {
	var rows []wordRow
	err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(
		`SELECT `+wordColumns+` FROM words WHERE owner = ? ORDER BY created_at ASC, id ASC`), owner)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	return toWords(rows), nil
}

func (r *wordRepo) FindByText(ctx context.Context, owner, native, target string) (*Word, error) {
	var row wordRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(
		`SELECT `+wordColumns+` FROM words WHERE owner = ? AND native = ? AND target = ?`),
		owner, native, target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find word: %w", err)
	}
	w := row.toWord()
	return &w, nil
}
