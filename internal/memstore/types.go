package memstore

import "sort"

// MessagePayload is one conversation turn sent to the store.
type MessagePayload struct {
	MessageID  string `json:"message_id"`
	CreateTime string `json:"create_time"`
	Sender     string `json:"sender"`
	Content    string `json:"content"`
	GroupID    string `json:"group_id,omitempty"`
	GroupName  string `json:"group_name,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Role       string `json:"role,omitempty"`
}

// ConversationMeta describes a session; it is registered once before the
// session's first message.
type ConversationMeta struct {
	Version         string                `json:"version"`
	Scene           string                `json:"scene"`
	SceneDesc       map[string]any        `json:"scene_desc"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	GroupID         string                `json:"group_id"`
	CreatedAt       string                `json:"created_at"`
	DefaultTimezone string                `json:"default_timezone"`
	UserDetails     map[string]UserDetail `json:"user_details"`
	Tags            []string              `json:"tags"`
}

type UserDetail struct {
	FullName string         `json:"full_name"`
	Role     string         `json:"role"`
	Extra    map[string]any `json:"extra"`
}

type SearchParams struct {
	Query          string
	RetrieveMethod string
	MemoryTypes    string // comma-separated
	UserID         string
	GroupID        string
	TopK           int
}

type FetchParams struct {
	MemoryType string
	UserID     string
	GroupID    string
	Limit      int
	Offset     int
}

// Response is the envelope every store endpoint returns.
type Response[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

type MemorizeResult struct {
	SavedMemories []any  `json:"saved_memories"`
	Count         int    `json:"count"`
	StatusInfo    string `json:"status_info"`
}

type SearchResult struct {
	Memories        []map[string][]Memory  `json:"memories"`
	Scores          []map[string][]float64 `json:"scores"`
	TotalCount      int                    `json:"total_count"`
	HasMore         bool                   `json:"has_more"`
	PendingMessages []any                  `json:"pending_messages"`
}

type FetchResult struct {
	Memories   []Memory `json:"memories"`
	TotalCount int      `json:"total_count"`
	HasMore    bool     `json:"has_more"`
}

type Memory struct {
	MemoryType string   `json:"memory_type,omitempty"`
	UserID     string   `json:"user_id,omitempty"`
	GroupID    string   `json:"group_id,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Episode    string   `json:"episode,omitempty"`
	Content    string   `json:"content,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

// Flatten returns the grouped search hits in order, each carrying its
// score when the store supplied one.
func (r SearchResult) Flatten() []Memory {
	var out []Memory
	for gi, group := range r.Memories {
		var scores map[string][]float64
		if gi < len(r.Scores) {
			scores = r.Scores[gi]
		}
		keys := make([]string, 0, len(group))
		for key := range group {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			for i, m := range group[key] {
				if s := scores[key]; i < len(s) {
					v := s[i]
					m.Score = &v
				}
				out = append(out, m)
			}
		}
	}
	return out
}
