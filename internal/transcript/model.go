package transcript

import (
	"encoding/json"
	"time"
)

// Record is one line of a Claude Code transcript.
type Record struct {
	Type      string   `json:"type"` // "user", "assistant", "summary" or "system"
	Message   *Message `json:"message"`
	UUID      string   `json:"uuid"`
	Timestamp string   `json:"timestamp"`
}

type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"` // string or []ContentBlock
}

type ContentBlock struct {
	Type string `json:"type"` // "text", "tool_use", "tool_result" or "thinking"
	Text string `json:"text"`
	Name string `json:"name"`
}

// Entry is a normalized user or assistant turn.
type Entry struct {
	ID        string
	Timestamp time.Time
	Role      string // "user" or "assistant"
	Text      string
	Index     int // position among non-blank lines

	// RawTimestamp holds the record's timestamp when it was present but
	// could not be parsed. Timestamp is the read time in that case.
	RawTimestamp string
}

// CreateTime is the timestamp sent to the memory store: the record's own
// string when it could not be parsed, otherwise Timestamp in UTC.
func (e Entry) CreateTime() string {
	if e.RawTimestamp != "" {
		return e.RawTimestamp
	}
	return e.Timestamp.UTC().Format(time.RFC3339Nano)
}

// Batch is the outcome of one read pass.
type Batch struct {
	Entries []Entry
	Lines   int // non-blank lines in the file
}
