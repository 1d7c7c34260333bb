package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Zuo-Peng/memsync/internal/cursor"
	"github.com/Zuo-Peng/memsync/internal/scan"
	"github.com/spf13/cobra"
)

func doctorCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, store reachability, cursor backend and transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(*debug)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg := a.cfg

			fmt.Println("=== Config ===")
			if cfg.Path != "" {
				fmt.Printf("  File: %s\n", cfg.Path)
			} else {
				fmt.Println("  File: (none, using defaults and environment)")
			}
			fmt.Printf("  User: %s  Group prefix: %s\n", cfg.UserID, cfg.GroupPrefix)

			fmt.Println("\n=== Memory Store ===")
			client := a.client(cfg.Timeout.Duration)
			defer client.Close()
			if client.Probe(ctx) {
				fmt.Printf("  %s (OK)\n", cfg.URL)
			} else {
				fmt.Printf("  %s (UNREACHABLE)\n", cfg.URL)
			}

			fmt.Println("\n=== Cursor Store ===")
			fmt.Printf("  Backend: %s\n", cfg.CursorBackend)
			cursors, err := a.openCursors(ctx)
			if err != nil {
				fmt.Printf("  Status: ERROR (%v)\n", err)
			} else {
				defer cursors.Close()
				describeCursors(ctx, cursors)
			}

			fmt.Println("\n=== Transcripts ===")
			checkDir("Claude", cfg.ClaudeRoot)
			files, err := scan.Transcripts(cfg.ClaudeRoot)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				fmt.Printf("  JSONL files: %d\n", len(files))
			}
			return nil
		},
	}
}

func describeCursors(ctx context.Context, s cursor.Store) {
	switch s := s.(type) {
	case *cursor.FileStore:
		entries, err := os.ReadDir(s.Dir())
		if err != nil {
			fmt.Printf("  Dir: %s (NOT FOUND, created on first sync)\n", s.Dir())
			return
		}
		fmt.Printf("  Dir: %s (%d records)\n", s.Dir(), len(entries))
	case *cursor.SQLiteStore:
		n, err := s.Count(ctx)
		if err != nil {
			fmt.Printf("  Status: ERROR (%v)\n", err)
			return
		}
		fmt.Printf("  Records: %d\n", n)
	default:
		fmt.Println("  Status: OK")
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
