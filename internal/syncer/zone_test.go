package syncer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zoneLink builds <dir>/usr/share/zoneinfo/<zone> and a localtime link to it.
func zoneLink(t *testing.T, zone string) string {
	t.Helper()
	dir := t.TempDir()
	target := filepath.Join(dir, "usr", "share", "zoneinfo", filepath.FromSlash(zone))
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("TZif"), 0o644))
	link := filepath.Join(dir, "localtime")
	require.NoError(t, os.Symlink(target, link))
	return link
}

func TestZoneName(t *testing.T) {
	link := zoneLink(t, "America/New_York")
	plain := filepath.Join(t.TempDir(), "localtime")
	require.NoError(t, os.WriteFile(plain, []byte("TZif"), 0o644))

	tests := []struct {
		name, tz, localtime, want string
	}{
		{"localtime link", "", link, "America/New_York"},
		{"TZ wins over link", "Europe/Berlin", link, "Europe/Berlin"},
		{"TZ with colon", ":Asia/Tokyo", link, "Asia/Tokyo"},
		{"TZ as zoneinfo path", "/usr/share/zoneinfo/Europe/Paris", link, "Europe/Paris"},
		{"posix subtree", ":/usr/share/zoneinfo/posix/Europe/Oslo", "", "Europe/Oslo"},
		{"localtime is a copy", "", plain, "UTC"},
		{"no localtime", "", filepath.Join(t.TempDir(), "missing"), "UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, zoneName(tt.tz, tt.localtime))
		})
	}
}

func TestLocalTimezoneReadsLocaltimeLink(t *testing.T) {
	t.Setenv("TZ", "")
	orig := localtimePath
	t.Cleanup(func() { localtimePath = orig })
	localtimePath = zoneLink(t, "Australia/Sydney")

	assert.Equal(t, "Australia/Sydney", localTimezone())
}
