package cursor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS cursors (
    key        TEXT PRIMARY KEY,
    last_line  INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS cursors_updated_at ON cursors(updated_at);
`

// SQLiteStore keeps cursors in a single sqlite table. updated_at holds
// unix milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

func OpenSQLite(ctx context.Context, dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now, log: log}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) int {
	var line int
	err := s.db.QueryRowContext(ctx,
		"SELECT last_line FROM cursors WHERE key = ?",
		SanitizeID(sessionID),
	).Scan(&line)
	if err == sql.ErrNoRows {
		return 0
	}
	if err != nil || line < 0 {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("unreadable cursor, starting from 0")
		return 0
	}
	return line
}

func (s *SQLiteStore) Set(ctx context.Context, sessionID string, line int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cursors (key, last_line, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET last_line = excluded.last_line, updated_at = excluded.updated_at`,
		SanitizeID(sessionID), line, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM cursors WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep cursors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Count reports how many cursors are stored.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cursors").Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
