package main

import (
	"context"
	"fmt"

	"github.com/Zuo-Peng/memsync/internal/logging"
	"github.com/Zuo-Peng/memsync/internal/transcript"
	"github.com/spf13/cobra"
)

func statusCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id> [transcript.jsonl]",
		Short: "Show a session's cursor and, given its transcript, what is pending",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			pos := cursors.Get(ctx, args[0])
			fmt.Printf("Session:  %s\n", args[0])
			fmt.Printf("Group:    %s-%s\n", a.cfg.GroupPrefix, args[0])
			fmt.Printf("Cursor:   %d\n", pos)
			if len(args) < 2 {
				return nil
			}

			batch := transcript.NewReader(logging.Component(a.log, "transcript")).Read(args[1], pos)
			fmt.Printf("Lines:    %d\n", batch.Lines)
			fmt.Printf("Pending:  %d\n", len(batch.Entries))
			if pos > batch.Lines {
				fmt.Println("WARNING: cursor is past the end of the transcript")
			}
			return nil
		},
	}
}
