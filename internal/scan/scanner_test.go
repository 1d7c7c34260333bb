package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestTranscripts(t *testing.T) {
	root := t.TempDir()
	old := time.Now().Add(-time.Hour)
	touch(t, filepath.Join(root, "-home-me-proj", "aaa.jsonl"), "{}\n", old)
	touch(t, filepath.Join(root, "-home-me-proj", "bbb.jsonl"), "{}\n", time.Now())
	touch(t, filepath.Join(root, "-home-me-proj", "sessions-index.jsonl"), "{}\n", time.Now())
	touch(t, filepath.Join(root, "-home-me-proj", "subagents", "ccc.jsonl"), "{}\n", time.Now())
	touch(t, filepath.Join(root, "-home-me-other", "notes.txt"), "x", time.Now())

	got, err := Transcripts(root)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "bbb", got[0].SessionID)
	assert.Equal(t, "aaa", got[1].SessionID)
	assert.Equal(t, "-home-me-proj", got[0].Project)
	assert.Equal(t, int64(3), got[0].Size)
}

func TestTranscriptsMissingRoot(t *testing.T) {
	got, err := Transcripts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCwd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	touch(t, path, `{"type":"summary"}`+"\nnot json\n"+`{"type":"user","cwd":"/home/me/proj"}`+"\n", time.Now())

	assert.Equal(t, "/home/me/proj", Cwd(path, 10))
	assert.Equal(t, "", Cwd(path, 2))
	assert.Equal(t, "", Cwd(filepath.Join(t.TempDir(), "missing"), 10))
}
