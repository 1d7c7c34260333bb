package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// reminderRe matches internal annotations injected into user turns.
var reminderRe = regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`)

const maxLoggedLine = 100

// Reader turns a transcript file into entries. It keeps no per-session state;
// every Read rescans the file from the top.
type Reader struct {
	Now func() time.Time
	Log zerolog.Logger
}

func NewReader(log zerolog.Logger) *Reader {
	return &Reader{Now: time.Now, Log: log}
}

// Read returns the entries whose Index is at least from. Lines before from
// are counted but not parsed. A missing or unreadable file yields an empty
// batch.
func (r *Reader) Read(filePath string, from int) Batch {
	f, err := os.Open(filePath)
	if err != nil {
		r.Log.Error().Err(err).Str("path", filePath).Msg("read transcript")
		return Batch{}
	}
	defer f.Close()

	var batch Batch
	br := bufio.NewReader(f)
	index := 0

	for {
		line, readErr := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if index >= from {
				if e, ok := r.parseLine(line, index); ok {
					batch.Entries = append(batch.Entries, e)
				}
			}
			index++
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				r.Log.Error().Err(readErr).Str("path", filePath).Int("line", index).Msg("read transcript")
			}
			break
		}
	}

	batch.Lines = index
	return batch
}

func (r *Reader) parseLine(line []byte, index int) (Entry, bool) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		r.Log.Warn().Int("line", index).Str("text", truncate(string(line), maxLoggedLine)).Msg("skip malformed transcript line")
		return Entry{}, false
	}

	if rec.Type != "user" && rec.Type != "assistant" {
		return Entry{}, false
	}

	text := ExtractContent(rec)
	if text == "" {
		return Entry{}, false
	}

	id := rec.UUID
	if id == "" {
		id = "line-" + strconv.Itoa(index)
	}
	ts := parseTimestamp(rec.Timestamp)
	var raw string
	if ts.IsZero() {
		ts = r.now()
		if rec.Timestamp != "" {
			raw = rec.Timestamp
			r.Log.Debug().Int("line", index).Str("timestamp", raw).Msg("unparseable timestamp kept as is")
		}
	}

	return Entry{
		ID:           id,
		Timestamp:    ts,
		Role:         rec.Type,
		Text:         text,
		Index:        index,
		RawTimestamp: raw,
	}, true
}

func (r *Reader) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// ExtractContent flattens a record's message content into plain text.
// Text blocks are kept, tool invocations become "[Used tool: <name>]",
// tool results and thinking blocks are dropped, and system reminders are
// stripped from the result.
func ExtractContent(rec Record) string {
	if rec.Message == nil || len(rec.Message.Content) == 0 {
		return ""
	}
	raw := rec.Message.Content

	// try string first
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return stripReminders(s)
	}

	// try array of content blocks
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			switch {
			case b.Type == "text" && b.Text != "":
				parts = append(parts, b.Text)
			case b.Type == "tool_use" && b.Name != "":
				parts = append(parts, "[Used tool: "+b.Name+"]")
			}
		}
		return stripReminders(strings.Join(parts, "\n"))
	}

	return ""
}

func stripReminders(s string) string {
	return strings.TrimSpace(reminderRe.ReplaceAllString(s, ""))
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// try RFC3339Nano (also accepts RFC3339)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// try ISO8601 without timezone
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
