package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := load(home, envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:1995", cfg.URL)
	assert.Equal(t, "claude-code-user", cfg.UserID)
	assert.Equal(t, "cc", cfg.GroupPrefix)
	assert.Equal(t, 10*time.Second, cfg.Timeout.Duration)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay.Duration)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention.Duration)
	assert.Equal(t, "file", cfg.CursorBackend)
	assert.Equal(t, filepath.Join(home, ".evermemos-plugin", "offsets"), cfg.OffsetDir)
	assert.Empty(t, cfg.Path)
}

func TestLoadTOMLFile(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".config", "memsync")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	toml := `
url = "http://memory.internal:8080"
group_prefix = "team"
timeout = "3s"
retry_base_delay = "50ms"
cursor_backend = "sqlite"
sqlite_path = "~/state/cursors.db"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644))

	cfg, err := load(home, envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "http://memory.internal:8080", cfg.URL)
	assert.Equal(t, "team", cfg.GroupPrefix)
	assert.Equal(t, 3*time.Second, cfg.Timeout.Duration)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBaseDelay.Duration)
	assert.Equal(t, "sqlite", cfg.CursorBackend)
	assert.Equal(t, filepath.Join(home, "state", "cursors.db"), cfg.SQLitePath)
	assert.Equal(t, filepath.Join(dir, "config.toml"), cfg.Path)
}

func TestEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".config", "memsync")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`user_id = "from-file"`), 0o644))

	cfg, err := load(home, envFrom(map[string]string{
		"EVERMEMOS_USER_ID":    "from-env",
		"EVERMEMOS_TIMEOUT_MS": "2500",
		"EVERMEMOS_DEBUG":      "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.UserID)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout.Duration)
	assert.True(t, cfg.Debug)
}

func TestEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".config", "memsync")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	env := "EVERMEMOS_URL=http://from-dotenv:1995\nEVERMEMOS_GROUP_PREFIX=dotenv\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := load(home, envFrom(map[string]string{
		"EVERMEMOS_GROUP_PREFIX": "real",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://from-dotenv:1995", cfg.URL)
	assert.Equal(t, "real", cfg.GroupPrefix)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad timeout", map[string]string{"EVERMEMOS_TIMEOUT_MS": "soon"}},
		{"unknown backend", map[string]string{"MEMSYNC_CURSOR_BACKEND": "etcd"}},
		{"redis without url", map[string]string{"MEMSYNC_CURSOR_BACKEND": "redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t.TempDir(), envFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestRedisPrefixMustNotBeEmpty(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".config", "memsync")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	toml := `
cursor_backend = "redis"
redis_url = "redis://localhost:6379/0"
redis_prefix = ""
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644))

	_, err := load(home, envFrom(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis_prefix")
}
