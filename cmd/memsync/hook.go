package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Zuo-Peng/memsync/internal/hook"
	"github.com/Zuo-Peng/memsync/internal/logging"
	"github.com/spf13/cobra"
)

func hookCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "hook",
		Short: "Handle one Claude Code hook event (JSON on stdin, JSON on stdout)",
		Long: `Reads a hook event such as {"hook_event_name":"Stop","session_id":...}
from stdin and always writes a JSON reply to stdout, exiting 0.

  SessionStart         inject relevant memories as additional context
  Stop, PreCompact     sync new transcript turns
  SessionEnd           sync, then sweep stale cursors`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(*debug)
			if err != nil {
				// still answer the hook, and exit 0
				fmt.Fprintln(os.Stderr, err)
				os.Stdout.WriteString("{}")
				return nil
			}

			h := &hook.Handler{
				Opts: hook.Options{
					RetrieveMethod:  a.cfg.RetrieveMethod,
					SearchTopK:      a.cfg.SearchTopK,
					ContextMaxChars: a.cfg.ContextMaxChars,
					Retention:       a.cfg.Retention.Duration,
				},
				Log: logging.Component(a.log, "hook"),
			}

			startClient := a.client(a.cfg.SessionStartTimeout.Duration)
			defer startClient.Close()
			h.Memories = startClient

			cursors, err := a.openCursors(ctx)
			if err != nil {
				a.log.Error().Err(err).Msg("cursor store unavailable")
			} else {
				defer cursors.Close()
				client := a.client(a.cfg.Timeout.Duration)
				defer client.Close()
				h.Syncer = a.coordinator(cursors, client)
				h.Sweeper = cursors
			}

			if err := h.Run(ctx, os.Stdin, os.Stdout); err != nil {
				a.log.Error().Err(err).Msg("write hook output")
			}
			return nil
		},
	}
}
