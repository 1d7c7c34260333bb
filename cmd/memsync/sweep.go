package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func sweepCmd(debug *bool) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete cursors not written within the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(*debug)
			if err != nil {
				return err
			}
			if maxAge <= 0 {
				maxAge = a.cfg.Retention.Duration
			}
			cursors, err := a.openCursors(ctx)
			if err != nil {
				return fmt.Errorf("open cursor store: %w", err)
			}
			defer cursors.Close()

			n, err := cursors.Sweep(ctx, maxAge)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Removed %d cursors older than %s\n", n, maxAge)
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Retention window (default: config retention)")
	return cmd
}
