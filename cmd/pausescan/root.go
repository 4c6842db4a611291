package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pausescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pausescan",
		Short: "Rate-limit aware path and virtual host enumerator",
		Long: `pausescan enumerates paths (dir) or virtual hosts (vhost) of a web target
from a word list, using a bounded pool of concurrent workers.

A 429 Too Many Requests response pauses every worker for the rate limit
delay. Throttled candidates are collected and retried in further passes,
after the given delay, until no candidate is rate limited any more.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(NewProbeCmd())
	cmd.AddCommand(NewDirCmd())
	cmd.AddCommand(NewVhostCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
