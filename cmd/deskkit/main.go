package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔╦╗┌─┐┌─┐┬┌─┌┬┐┬┌┬┐
   ║║├┤ └─┐├┴┐ │ │ │
  ═╩╝└─┘└─┘┴ ┴ ┴ ┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskkit",
		Short: "In-process infrastructure for desktop application windows",
		Long: `deskkit is an in-process infrastructure kit for desktop applications,
providing three interlocked subsystems on top of whatever host window
runtime the application embeds it in:

  • Window Lifecycle Registry — named, deduplicated, crash-resilient
    window supervision with persistent geometry
  • Typed IPC Router — single-channel multiplexed request/response
    dispatch with schema validation and rate limiting
  • State Synchronization Bus — shared key/value state with per-key
    permissions, transactions, and window-group messaging`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Print(banner)
}
