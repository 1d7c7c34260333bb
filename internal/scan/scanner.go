package scan

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Transcript struct {
	Path      string
	SessionID string // file name without extension
	Project   string // name of the containing project directory
	Mtime     time.Time
	Size      int64
}

// Transcripts walks a Claude projects root and returns every session
// transcript, newest first. A missing root yields no transcripts.
func Transcripts(root string) ([]Transcript, error) {
	var files []Transcript
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			if filepath.Base(path) == "subagents" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		base := filepath.Base(path)
		if strings.Contains(base, "sessions-index") {
			return nil
		}
		files = append(files, Transcript{
			Path:      path,
			SessionID: strings.TrimSuffix(base, ".jsonl"),
			Project:   filepath.Base(filepath.Dir(path)),
			Mtime:     info.ModTime(),
			Size:      info.Size(),
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Mtime.After(files[j].Mtime) })
	return files, nil
}

// Cwd returns the working directory recorded in the transcript, or ""
// if no record carries one within the first maxLines lines.
func Cwd(path string, maxLines int) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 0; sc.Scan() && n < maxLines; n++ {
		var rec struct {
			Cwd string `json:"cwd"`
		}
		if json.Unmarshal(sc.Bytes(), &rec) == nil && rec.Cwd != "" {
			return rec.Cwd
		}
	}
	return ""
}
