package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// FileStore keeps one JSON file per session in dir.
type FileStore struct {
	dir string
	now func() time.Time
	log zerolog.Logger
}

func NewFileStore(dir string, log zerolog.Logger) *FileStore {
	return &FileStore{dir: dir, now: time.Now, log: log}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, SanitizeID(sessionID)+".json")
}

func (s *FileStore) Get(_ context.Context, sessionID string) int {
	path := s.path(sessionID)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("unreadable cursor, starting from 0")
		return 0
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil || st.LastLine < 0 {
		s.log.Warn().Err(err).Str("path", path).Msg("corrupt cursor, starting from 0")
		return 0
	}
	return st.LastLine
}

// Set writes the cursor to a temporary file and renames it into place, so
// a concurrent or later Get never sees a partial record.
func (s *FileStore) Set(_ context.Context, sessionID string, line int) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cursor dir: %w", err)
	}

	b, err := json.Marshal(State{LastLine: line, UpdatedAt: s.now().UTC()})
	if err != nil {
		return err
	}

	path := s.path(sessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename cursor %s: %w", path, err)
	}
	return nil
}

// Sweep removes cursor files whose modification time is older than maxAge.
func (s *FileStore) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list cursor dir: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		info, err := e.Info()
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("stat cursor")
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("remove stale cursor")
			continue
		}
		s.log.Debug().Str("file", e.Name()).Msg("removed stale cursor")
		removed++
	}
	return removed, nil
}

func (s *FileStore) Close() error {
	return nil
}
