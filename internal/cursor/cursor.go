// Package cursor persists, per session, the index of the next transcript
// line that has not yet been delivered.
//
// Session ids are reduced to storage keys with SanitizeID. Two distinct ids
// that sanitize to the same key share one cursor; nothing here detects that.
//
// Writers are not coordinated: at most one sync pass per session is expected
// to run at a time, and overlapping passes can lose updates.
package cursor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRetention is how long an untouched cursor survives a sweep.
const DefaultRetention = 7 * 24 * time.Hour

// Store is a durable per-session cursor map.
type Store interface {
	// Get returns the stored cursor, or 0 when the record is absent or
	// unreadable.
	Get(ctx context.Context, sessionID string) int
	// Set replaces the cursor atomically and stamps it with the write time.
	Set(ctx context.Context, sessionID string, line int) error
	// Sweep removes records not written within maxAge and reports how many
	// were removed. Individual failures are logged and skipped.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
	Close() error
}

// State is the persisted form of one cursor.
type State struct {
	LastLine  int       `json:"lastLine"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SanitizeID maps a session id to a storage key by replacing every
// character outside [A-Za-z0-9_-] with '_'.
func SanitizeID(sessionID string) string {
	var b strings.Builder
	b.Grow(len(sessionID))
	for _, r := range sessionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

type Options struct {
	Backend     string // "file", "sqlite" or "redis"
	Dir         string
	SQLitePath  string
	RedisURL    string
	RedisPrefix string
	Retention   time.Duration
}

// Open builds the store selected by opts.Backend.
func Open(ctx context.Context, opts Options, log zerolog.Logger) (Store, error) {
	switch opts.Backend {
	case "", "file":
		return NewFileStore(opts.Dir, log), nil
	case "sqlite":
		s, err := OpenSQLite(ctx, opts.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := OpenRedis(ctx, opts.RedisURL, opts.RedisPrefix, opts.Retention, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cursor backend %q", opts.Backend)
	}
}
