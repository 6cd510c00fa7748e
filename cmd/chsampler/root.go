package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"chsampler/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chsampler",
	Short: "Sample Companies House companies and collect their officers",
	Long: `chsampler draws a random sample of active companies from a Companies
House bulk snapshot and retrieves the officer list for each sampled
company from the public API.

Progress is checkpointed to a single JSON file, so an interrupted run
picks up exactly where it left off: the sample is drawn once and every
already-fetched company is skipped on resume.

Typical workflow:
  1. chsampler auth login                  store your API key
  2. chsampler run --snapshot export.csv   fetch officers for the sample
  3. chsampler analyze                     summarise director origins`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .chsampler.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`chsampler {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
