// Package cli provides the fedreg command-line interface.
// Commands resolve their services lazily from configuration, so each
// command only connects to what it uses.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fedreg/internal/logger"
)

// version is set at build time via -ldflags "-X ...cli.version=X.Y.Z".
var version = "dev"

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "fedreg",
	Short: "Federal Register ingestion and question answering",
	Long: `fedreg keeps a local copy of the Federal Register current and answers
questions about it.

A daily run fetches the last few days of published documents, saves each
day's raw response as a snapshot, and upserts the records into SQLite or
MySQL. The chat commands put a language model in front of that store; it
may run one structured search per question.

Quick Start:
  fedreg config init          Write ~/.fedreg/config.toml
  fedreg run                  Fetch the last 7 days and ingest them
  fedreg search -k ozone      Query the store directly
  fedreg chat                 Ask questions interactively

Configuration is read from the config file, then FEDREG_* environment
variables (FEDREG_LLM_API_KEY, FEDREG_STORE_DSN, ...) and a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		logger.SetJSON(jsonLogs)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ~/.fedreg/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "write logs as JSON")
}

// Execute runs the root command and releases every opened resource.
// This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	closeResources()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
