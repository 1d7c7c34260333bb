// Package hook implements the Claude Code hook protocol: one JSON event on
// stdin, one JSON reply on stdout. The reply is always well formed, whatever
// fails underneath.
package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Zuo-Peng/memsync/internal/memstore"
	"github.com/Zuo-Peng/memsync/internal/render"
	"github.com/Zuo-Peng/memsync/internal/syncer"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	EventSessionStart = "SessionStart"
	EventStop         = "Stop"
	EventPreCompact   = "PreCompact"
	EventSessionEnd   = "SessionEnd"
)

const profileLimit = 3

type Input struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
}

type Output struct {
	Continue          bool   `json:"continue,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

var continueOutput = Output{Continue: true}

type Syncer interface {
	Sync(ctx context.Context, req syncer.Request) (syncer.Result, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

// Memories serves the session start lookups.
type Memories interface {
	Probe(ctx context.Context) bool
	SearchMemories(ctx context.Context, p memstore.SearchParams) (*memstore.Response[memstore.SearchResult], error)
	FetchMemories(ctx context.Context, p memstore.FetchParams) (*memstore.Response[memstore.FetchResult], error)
}

type Options struct {
	RetrieveMethod  string
	SearchTopK      int
	ContextMaxChars int
	Retention       time.Duration
}

// Handler dispatches events. A nil Syncer or Sweeper disables that work,
// which lets the hook still answer when the cursor store cannot be opened.
type Handler struct {
	Syncer   Syncer
	Sweeper  Sweeper
	Memories Memories
	Opts     Options
	Log      zerolog.Logger
}

// Run reads one event from r and writes the reply to w.
func (h *Handler) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		h.Log.Error().Err(err).Msg("failed to read hook input")
		return writeOutput(w, Output{})
	}
	return writeOutput(w, h.safeHandle(ctx, in))
}

// safeHandle turns a panic in a handler into the event's default reply.
func (h *Handler) safeHandle(ctx context.Context, in Input) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			h.Log.Error().Interface("panic", r).Str("event", in.HookEventName).Msg("hook handler panicked")
			out = continueOutput
			if in.HookEventName == EventSessionStart {
				out = Output{}
			}
		}
	}()
	return h.Handle(ctx, in)
}

// Handle runs the work for one event and returns its reply.
func (h *Handler) Handle(ctx context.Context, in Input) Output {
	log := h.Log.With().Str("event", in.HookEventName).Str("session", in.SessionID).Logger()
	log.Debug().Msg("hook invoked")

	switch in.HookEventName {
	case EventSessionStart:
		return h.sessionStart(ctx, in, log)
	case EventStop, EventPreCompact:
		h.sync(ctx, in, log)
		return continueOutput
	case EventSessionEnd:
		h.sync(ctx, in, log)
		h.sweep(ctx, log)
		return continueOutput
	default:
		log.Warn().Msg("unknown hook event")
		return Output{}
	}
}

func (h *Handler) sync(ctx context.Context, in Input, log zerolog.Logger) {
	if h.Syncer == nil {
		log.Warn().Msg("sync unavailable, skipping")
		return
	}
	res, err := h.Syncer.Sync(ctx, syncer.Request{
		SessionID:      in.SessionID,
		TranscriptPath: in.TranscriptPath,
		Cwd:            in.Cwd,
	})
	if err != nil {
		log.Error().Err(err).Msg("sync failed")
		return
	}
	log.Debug().Msg(res.String())
}

func (h *Handler) sweep(ctx context.Context, log zerolog.Logger) {
	if h.Sweeper == nil {
		return
	}
	n, err := h.Sweeper.Sweep(ctx, h.Opts.Retention)
	if err != nil {
		log.Error().Err(err).Msg("cursor sweep failed")
		return
	}
	log.Debug().Int("removed", n).Msg("cursor sweep done")
}

// sessionStart looks up memories relevant to the project and returns them
// as additional context. The search and the profile fetch run concurrently
// and either may fail without affecting the other.
func (h *Handler) sessionStart(ctx context.Context, in Input, log zerolog.Logger) Output {
	if h.Memories == nil || !h.Memories.Probe(ctx) {
		log.Debug().Msg("memory store not available, skipping context injection")
		return Output{}
	}

	project := syncer.ProjectName(in.Cwd)
	var hits, profiles []memstore.Memory

	var g errgroup.Group
	g.Go(func() error {
		if project == "" {
			log.Debug().Msg("no project directory, skipping memory search")
			return nil
		}
		resp, err := h.Memories.SearchMemories(ctx, memstore.SearchParams{
			Query:          project,
			RetrieveMethod: h.Opts.RetrieveMethod,
			MemoryTypes:    "episodic_memory",
			TopK:           h.Opts.SearchTopK,
		})
		if err != nil {
			log.Warn().Err(err).Msg("memory search failed")
			return nil
		}
		hits = resp.Result.Flatten()
		return nil
	})
	g.Go(func() error {
		resp, err := h.Memories.FetchMemories(ctx, memstore.FetchParams{
			MemoryType: "profile",
			Limit:      profileLimit,
		})
		if err != nil {
			log.Warn().Err(err).Msg("profile fetch failed")
			return nil
		}
		profiles = resp.Result.Memories
		return nil
	})
	g.Wait()

	md := render.ContextMarkdown(profiles, hits, h.Opts.ContextMaxChars)
	if md == "" {
		return Output{}
	}
	log.Debug().Int("chars", len(md)).Msg("injecting context")
	return Output{AdditionalContext: md}
}

func writeOutput(w io.Writer, out Output) error {
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode hook output: %w", err)
	}
	_, err = w.Write(b)
	return err
}
