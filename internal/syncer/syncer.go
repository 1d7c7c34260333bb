// Package syncer runs one synchronization pass for a session: it reads the
// transcript from the stored cursor, delivers new turns to the memory store
// in order, and advances the cursor past the turns the store accepted.
//
// Delivery is at-least-once. A crash after a delivery but before the cursor
// is saved makes the next pass resend that turn.
package syncer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/Zuo-Peng/memsync/internal/cursor"
	"github.com/Zuo-Peng/memsync/internal/memstore"
	"github.com/Zuo-Peng/memsync/internal/transcript"
	"github.com/rs/zerolog"
)

// TranscriptSource yields the entries at or after a resume index.
type TranscriptSource interface {
	Read(path string, from int) transcript.Batch
}

// MemoryStore accepts conversation turns and session metadata.
type MemoryStore interface {
	StoreMessage(ctx context.Context, p memstore.MessagePayload) (*memstore.Response[memstore.MemorizeResult], error)
	SaveConversationMeta(ctx context.Context, m memstore.ConversationMeta) (*memstore.Response[json.RawMessage], error)
}

type Options struct {
	UserID      string
	GroupPrefix string
}

type Coordinator struct {
	cursors cursor.Store
	reader  TranscriptSource
	store   MemoryStore
	opts    Options
	now     func() time.Time
	log     zerolog.Logger
}

func New(cursors cursor.Store, reader TranscriptSource, store MemoryStore, opts Options, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cursors: cursors,
		reader:  reader,
		store:   store,
		opts:    opts,
		now:     time.Now,
		log:     log,
	}
}

// Request identifies the session and transcript to synchronize.
type Request struct {
	SessionID      string
	TranscriptPath string
	Cwd            string
}

// Sync runs one pass. Failures to register metadata or deliver a turn are
// reported in the Result; only a failure to persist the cursor is returned
// as an error, since the pass's progress is then not durable.
func (c *Coordinator) Sync(ctx context.Context, req Request) (Result, error) {
	res := Result{SessionID: req.SessionID, Outcome: OutcomeNoNewData}
	log := c.log.With().Str("session", req.SessionID).Logger()

	if req.TranscriptPath == "" {
		log.Debug().Msg("no transcript path, skipping")
		return res, nil
	}

	start := c.cursors.Get(ctx, req.SessionID)
	res.StartCursor, res.EndCursor = start, start

	batch := c.reader.Read(req.TranscriptPath, start)
	if start > batch.Lines && batch.Lines > 0 {
		log.Warn().Int("cursor", start).Int("lines", batch.Lines).Msg("cursor is past the end of the transcript")
	}
	if len(batch.Entries) == 0 {
		log.Debug().Int("cursor", start).Msg("no new transcript entries")
		return res, nil
	}
	res.Pending = len(batch.Entries)
	log.Debug().Int("entries", res.Pending).Int("cursor", start).Msg("processing new entries")

	groupID := c.opts.GroupPrefix + "-" + req.SessionID
	groupName := ProjectName(req.Cwd)

	if start == 0 {
		if _, err := c.store.SaveConversationMeta(ctx, c.conversationMeta(groupID, groupName)); err != nil {
			res.fail(StepRegisterMetadata, err)
			log.Warn().Err(err).Msg("failed to save conversation metadata")
		} else {
			res.MetadataRegistered = true
			log.Debug().Msg("conversation metadata saved")
		}
	}

	last := start
	for _, e := range batch.Entries {
		if _, err := c.store.StoreMessage(ctx, c.messagePayload(e, groupID, groupName)); err != nil {
			res.fail(StepDeliver, err)
			log.Error().Err(err).Str("message_id", e.ID).Int("line", e.Index).Msg("failed to store message")
			break
		}
		last = e.Index + 1
		res.Delivered++
	}

	switch {
	case res.Delivered == res.Pending:
		res.Outcome = OutcomeComplete
	case res.Delivered > 0:
		res.Outcome = OutcomePartial
	default:
		res.Outcome = OutcomeFailed
	}

	if last > start {
		if err := c.cursors.Set(ctx, req.SessionID, last); err != nil {
			res.fail(StepPersist, err)
			log.Error().Err(err).Int("cursor", last).Msg("failed to save cursor")
			return res, err
		}
		res.EndCursor = last
		log.Debug().Int("cursor", last).Msg("cursor updated")
	}

	return res, nil
}

func (c *Coordinator) conversationMeta(groupID, groupName string) memstore.ConversationMeta {
	tags := []string{"claude-code"}
	if groupName != "" {
		tags = append(tags, groupName)
	}
	return memstore.ConversationMeta{
		Version:         "1.0.0",
		Scene:           "assistant",
		SceneDesc:       map[string]any{},
		Name:            groupName,
		Description:     "Claude Code session: " + groupName,
		GroupID:         groupID,
		CreatedAt:       c.now().UTC().Format(time.RFC3339Nano),
		DefaultTimezone: localTimezone(),
		UserDetails: map[string]memstore.UserDetail{
			c.opts.UserID: {FullName: "User", Role: "user", Extra: map[string]any{}},
			"assistant":   {FullName: "Claude", Role: "assistant", Extra: map[string]any{}},
		},
		Tags: tags,
	}
}

func (c *Coordinator) messagePayload(e transcript.Entry, groupID, groupName string) memstore.MessagePayload {
	sender, senderName := c.opts.UserID, "User"
	if e.Role == "assistant" {
		sender, senderName = "assistant", "Claude"
	}
	return memstore.MessagePayload{
		MessageID:  e.ID,
		CreateTime: e.CreateTime(),
		Sender:     sender,
		Content:    e.Text,
		GroupID:    groupID,
		GroupName:  groupName,
		SenderName: senderName,
		Role:       e.Role,
	}
}

// ProjectName is the last element of cwd, or "" when cwd names no directory.
func ProjectName(cwd string) string {
	if cwd == "" {
		return ""
	}
	name := filepath.Base(cwd)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
