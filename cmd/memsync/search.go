package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Zuo-Peng/memsync/internal/memstore"
	"github.com/Zuo-Peng/memsync/internal/render"
	"github.com/Zuo-Peng/memsync/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// memorySource backs the TUI: a query searches, an empty query lists the
// most recent memories.
type memorySource struct {
	client *memstore.Client
	params memstore.SearchParams
}

func (s memorySource) Search(ctx context.Context, query string) ([]memstore.Memory, error) {
	if query == "" {
		resp, err := s.client.FetchMemories(ctx, memstore.FetchParams{
			MemoryType: "episodic_memory",
			UserID:     s.params.UserID,
			GroupID:    s.params.GroupID,
			Limit:      s.params.TopK,
		})
		if err != nil {
			return nil, err
		}
		return resp.Result.Memories, nil
	}
	p := s.params
	p.Query = query
	resp, err := s.client.SearchMemories(ctx, p)
	if err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("search failed: %s", resp.Message)
	}
	return resp.Result.Flatten(), nil
}

func searchCmd(debug *bool) *cobra.Command {
	var method, user, group string
	var types []string
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories in the store",
		Long: `Searches the memory store. Opens an interactive browser when stdout is a
terminal; otherwise prints TSV:
  timestamp, type, group, score, headline, snippet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*debug)
			if err != nil {
				return err
			}
			if method == "" {
				method = a.cfg.RetrieveMethod
			}
			if topK <= 0 {
				topK = a.cfg.SearchTopK
			}
			client := a.client(a.cfg.Timeout.Duration)
			defer client.Close()

			src := memorySource{client: client, params: memstore.SearchParams{
				RetrieveMethod: method,
				MemoryTypes:    strings.Join(types, ","),
				UserID:         user,
				GroupID:        group,
				TopK:           topK,
			}}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(src, query)
			}
			if query == "" {
				return fmt.Errorf("query is required when output is not a terminal")
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			results, err := src.Search(ctx, query)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintf(os.Stderr, "No memories found for query: %q\n", query)
				return nil
			}

			for _, m := range results {
				score := "-"
				if m.Score != nil {
					score = fmt.Sprintf("%.4f", *m.Score)
				}
				body := m.Episode
				if body == "" {
					body = m.Content
				}
				fmt.Printf("%s%s%s\t%s\t%s\t%s%s%s\t%s\t%s\n",
					sColorDim, tsvField(m.Timestamp), sColorReset,
					tsvField(m.MemoryType),
					tsvField(m.GroupID),
					sColorGreen, score, sColorReset,
					tsvField(render.Headline(m)),
					colorizeSnippet(tsvField(render.Snippet(body, query, 40))),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "Retrieve method: keyword, vector, hybrid, rrf, agentic (default: config)")
	cmd.Flags().StringSliceVar(&types, "types", nil, "Memory types: episodic_memory, foresight, event_log")
	cmd.Flags().StringVar(&user, "user", "", "Filter by user id")
	cmd.Flags().StringVar(&group, "group", "", "Filter by group id")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Max results (default: config)")
	return cmd
}
