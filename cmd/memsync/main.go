package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "memsync",
		Short:         "Sync Claude Code transcripts to EverMemOS long-term memory",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging on stderr")

	rootCmd.AddCommand(hookCmd(&debug))
	rootCmd.AddCommand(syncCmd(&debug))
	rootCmd.AddCommand(sweepCmd(&debug))
	rootCmd.AddCommand(searchCmd(&debug))
	rootCmd.AddCommand(fetchCmd(&debug))
	rootCmd.AddCommand(statusCmd(&debug))
	rootCmd.AddCommand(doctorCmd(&debug))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
