package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skyline-hq/anarchy/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "anarchy",
	Short: "Anarchy - placement rule overrides for city-builder tools",
	Long: `Anarchy lets placement tools bypass the host's validation rules.

It runs a per-frame pipeline around the host's tool systems:
  - Suppresses error checks according to a persisted policy table
  - Keeps placed objects where the tool put them
  - Carries elevation and grade across frames of a tool session
  - Preserves existing objects that new placements overlap

The simulate command drives the pipeline against a simulated host.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
