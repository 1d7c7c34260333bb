package syncer

import (
	"os"
	"path/filepath"
	"strings"
)

// localtimePath is the zone link consulted when $TZ is unset.
var localtimePath = "/etc/localtime"

// localTimezone names the host's IANA zone. Go reports time.Local as "Local"
// whenever the zone came from /etc/localtime, so the name is recovered from
// the link target instead.
func localTimezone() string {
	return zoneName(os.Getenv("TZ"), localtimePath)
}

func zoneName(tz, localtime string) string {
	tz = strings.TrimPrefix(tz, ":")
	if tz != "" && !filepath.IsAbs(tz) {
		return tz
	}
	path := localtime
	if tz != "" {
		path = tz
	}
	if target, err := os.Readlink(path); err == nil {
		path = target
	}
	if name := zoneFromPath(path); name != "" {
		return name
	}
	return "UTC"
}

// zoneFromPath returns the part of a zoneinfo file path after "zoneinfo/".
func zoneFromPath(path string) string {
	path = filepath.ToSlash(path)
	_, name, ok := strings.Cut(path, "zoneinfo/")
	if !ok {
		return ""
	}
	return strings.TrimPrefix(name, "posix/")
}
