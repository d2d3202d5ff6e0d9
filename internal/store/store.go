package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	// Postgres driver, selected for postgres:// DSNs.
	_ "github.com/lib/pq"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store owns the database handle and hands out repositories bound to it.
type Store struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

// Open connects to dsn and migrates the schema. A DSN starting with
// postgres:// or postgresql:// selects lib/pq; anything else is treated as
// a SQLite file path or file: URI.
func Open(dsn string) (*Store, error) {
	driver, source := resolveDriver(dsn)

	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, seq: &sequenceCounter{}}, nil
}

// DB returns the underlying handle for raw queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Words() WordRepo {
	return &wordRepo{q: s.db}
}

func (s *Store) Topics() TopicRepo {
	return &topicRepo{q: s.db}
}

func (s *Store) History() HistoryRepo {
	return &historyRepo{q: s.db, seq: s.seq}
}

// EventRepo returns the LLM request event log.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{q: s.db, seq: s.seq}
}

// WithTx runs fn inside one transaction. The transaction commits if fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txRepos{tx: tx, seq: s.seq}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txRepos binds repositories to an open transaction.
type txRepos struct {
	tx  *sqlx.Tx
	seq *sequenceCounter
}

func (t *txRepos) Words() WordRepo      { return &wordRepo{q: t.tx} }
func (t *txRepos) Topics() TopicRepo    { return &topicRepo{q: t.tx} }
func (t *txRepos) History() HistoryRepo { return &historyRepo{q: t.tx, seq: t.seq} }

// resolveDriver picks the database/sql driver name for dsn and, for SQLite,
// appends the connection pragmas. Pragmas go in the DSN rather than through
// a one-off Exec because busy_timeout and foreign_keys are per-connection.
func resolveDriver(dsn string) (driver, source string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", dsn
	}
	return "sqlite", sqliteDSN(dsn)
}

// sqlitePragmas configures SQLite for a single local user with concurrent
// readers. Immediate transactions avoid lock-upgrade deadlocks when two
// writers race on the same row.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	params := url.Values{}
	for _, p := range sqlitePragmas {
		params.Add("_pragma", p)
	}
	params.Set("_txlock", "immediate")

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

// DefaultDBPath resolves the database file path in priority order:
// 1. LEXIZ_DB environment variable
// 2. $XDG_DATA_HOME/lexiz/lexiz.db
// 3. ~/.local/share/lexiz/lexiz.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("LEXIZ_DB"); p != "" {
		if strings.Contains(p, "://") {
			return p, nil
		}
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "lexiz", "lexiz.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
