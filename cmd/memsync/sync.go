package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zuo-Peng/memsync/internal/scan"
	"github.com/Zuo-Peng/memsync/internal/syncer"
	"github.com/spf13/cobra"
)

func syncCmd(debug *bool) *cobra.Command {
	var all bool
	var sessionID, cwd string

	cmd := &cobra.Command{
		Use:   "sync [transcript.jsonl]",
		Short: "Deliver new transcript turns to the memory store",
		Long: `Runs one sync pass for a transcript, or for every transcript under the
Claude projects root with --all. The session id defaults to the file name
without its extension.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("give a transcript path or --all")
			}
			ctx := context.Background()
			a, err := newApp(*debug)
			if err != nil {
				return err
			}
			cursors, err := a.openCursors(ctx)
			if err != nil {
				return fmt.Errorf("open cursor store: %w", err)
			}
			defer cursors.Close()
			client := a.client(a.cfg.Timeout.Duration)
			defer client.Close()
			c := a.coordinator(cursors, client)

			if all {
				fmt.Fprintf(os.Stderr, "Scanning %s...\n", a.cfg.ClaudeRoot)
				stats, err := c.SyncAll(ctx, a.cfg.ClaudeRoot)
				if err != nil {
					return fmt.Errorf("sync: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
				return nil
			}

			path := args[0]
			if sessionID == "" {
				sessionID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
			}
			if cwd == "" {
				cwd = scan.Cwd(path, 50)
			}
			res, err := c.Sync(ctx, syncer.Request{SessionID: sessionID, TranscriptPath: path, Cwd: cwd})
			fmt.Fprintln(os.Stderr, res)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Sync every transcript under the Claude projects root")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (default: transcript file name)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Project directory (default: read from the transcript)")
	return cmd
}
