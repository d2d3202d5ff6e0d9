package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is written in the subset of SQL shared by SQLite and Postgres.
// Timestamps are stored as Unix milliseconds so that range comparisons and
// ordering behave identically on both backends.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val BIGINT NOT NULL DEFAULT 1
	)`,
	`INSERT INTO global_sequence (id, next_val) VALUES (1, 1) ON CONFLICT (id) DO NOTHING`,

	`CREATE TABLE IF NOT EXISTS words (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		native TEXT NOT NULL,
		target TEXT NOT NULL,
		part_of_speech TEXT NOT NULL,
		gender TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL,
		mastery_score INTEGER NOT NULL DEFAULT 0,
		ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
		interval_days INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		wrong_count INTEGER NOT NULL DEFAULT 0,
		correct_streak INTEGER NOT NULL DEFAULT 0,
		last_reviewed_at BIGINT,
		next_review_at BIGINT,
		created_at BIGINT NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		UNIQUE (owner, native, target)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_words_owner_due ON words (owner, next_review_at)`,

	`CREATE TABLE IF NOT EXISTS grammar_topics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_grammar_topics_level ON grammar_topics (level)`,

	`CREATE TABLE IF NOT EXISTS topic_progress (
		owner TEXT NOT NULL,
		topic_id TEXT NOT NULL REFERENCES grammar_topics (id),
		mastery_score INTEGER NOT NULL DEFAULT 0,
		times_practiced INTEGER NOT NULL DEFAULT 0,
		last_practiced_at BIGINT,
		version BIGINT NOT NULL DEFAULT 1,
		PRIMARY KEY (owner, topic_id)
	)`,

	`CREATE TABLE IF NOT EXISTS review_history (
		seq BIGINT PRIMARY KEY,
		owner TEXT NOT NULL,
		ts BIGINT NOT NULL,
		kind TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		correct BOOLEAN NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		error_category TEXT NOT NULL DEFAULT '',
		topic_id TEXT NOT NULL DEFAULT '',
		part_of_speech TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT '',
		latency_ms BIGINT NOT NULL DEFAULT 0,
		batch_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_history_owner_ts ON review_history (owner, ts)`,

	`CREATE TABLE IF NOT EXISTS llm_request_events (
		seq BIGINT PRIMARY KEY,
		ts BIGINT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
}

// migrate creates all tables and indexes. Every statement is idempotent.
func migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}
