package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Zuo-Peng/memsync/internal/memstore"
	"github.com/Zuo-Peng/memsync/internal/render"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func fetchCmd(debug *bool) *cobra.Command {
	var p memstore.FetchParams

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "List memories of one type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*debug)
			if err != nil {
				return err
			}
			client := a.client(a.cfg.Timeout.Duration)
			defer client.Close()

			resp, err := client.FetchMemories(context.Background(), p)
			if err != nil {
				return err
			}
			if resp.Status != "" && resp.Status != "ok" {
				return fmt.Errorf("fetch failed: %s", resp.Message)
			}
			mems := resp.Result.Memories
			if len(mems) == 0 {
				fmt.Fprintf(os.Stderr, "No %s memories found.\n", p.MemoryType)
				return nil
			}

			width := 0
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = w
			}
			fmt.Fprintf(os.Stderr, "Found %d memories (total: %d, has more: %t)\n",
				len(mems), resp.Result.TotalCount, resp.Result.HasMore)
			for i, m := range mems {
				fmt.Printf("%s=== Memory %d ===%s\n", sColorDim, p.Offset+i+1, sColorReset)
				fmt.Print(render.Memory(m, render.Options{Width: width}))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&p.MemoryType, "type", "episodic_memory", "Memory type: profile, episodic_memory, foresight, event_log")
	cmd.Flags().StringVar(&p.UserID, "user", "", "Filter by user id")
	cmd.Flags().StringVar(&p.GroupID, "group", "", "Filter by group id")
	cmd.Flags().IntVar(&p.Limit, "limit", 20, "Max results")
	cmd.Flags().IntVar(&p.Offset, "offset", 0, "Skip this many results")
	return cmd
}
