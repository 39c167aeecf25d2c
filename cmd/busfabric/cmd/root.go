// Package cmd implements the busfabric command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "busfabric",
	Short: "Cycle-accurate simulation of an on-chip bus crossbar",
	Long: `busfabric simulates an N-initiator by M-target on-chip bus fabric:
address decoding against a region table, per-target arbitration, and
response routing, with per-cycle accuracy.`,
}

// Execute runs the root command.
func Execute() {
	// A .env file can preset monitoring options (e.g.
	// BUSFABRIC_MONITOR_PORT); absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
