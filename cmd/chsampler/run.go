package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chsampler/pkg/auth"
	"chsampler/pkg/companieshouse"
	"chsampler/pkg/config"
	"chsampler/pkg/logger"
	"chsampler/pkg/sampler"
	"chsampler/pkg/ui"
)

var (
	// Run command flags
	snapshotPath       string
	outputPath         string
	sampleSize         int
	checkpointInterval int
	apiKey             string
	accountLabel       string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch officers for a random sample of active companies",
	Long: `Draw a random sample of active companies from the snapshot CSV and
fetch the officer list for each sampled company.

An API key is required, supplied through:
  - Stored credentials (use 'chsampler auth login' to store)
  - The CHSAMPLER_API_KEY environment variable
  - The --api-key flag or configuration file

The command is safe to interrupt and rerun. The sample and all fetched
results live in a single JSON file; rerunning skips companies already
present and continues with the rest. Changing --sample-size discards
the persisted sample and draws a fresh one.`,
	Example: `  # Sample 1000 active companies and fetch their officers
  chsampler run --snapshot BasicCompanyData.csv

  # Smaller sample, custom output location
  chsampler run --snapshot export.csv --sample-size 200 --output pilot.json

  # Checkpoint more often on a flaky connection
  chsampler run --snapshot export.csv --checkpoint-interval 10`,
	Args: cobra.NoArgs,
	Run:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "path to the registry snapshot CSV (required)")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "path to the JSON result store")
	runCmd.Flags().IntVar(&sampleSize, "sample-size", 0, "number of companies to sample")
	runCmd.Flags().IntVar(&checkpointInterval, "checkpoint-interval", 0, "companies fetched between checkpoint writes")
	runCmd.Flags().StringVar(&apiKey, "api-key", "", "Companies House API key")
	runCmd.Flags().StringVarP(&accountLabel, "account", "a", "", "use a specific stored credential label")
}

func runRun(cmd *cobra.Command, args []string) {
	// Build flags map from command line
	flags := make(map[string]interface{})
	if snapshotPath != "" {
		flags["snapshot"] = snapshotPath
	}
	if outputPath != "" {
		flags["output"] = outputPath
	}
	if sampleSize > 0 {
		flags["sample-size"] = sampleSize
	}
	if checkpointInterval > 0 {
		flags["checkpoint-interval"] = checkpointInterval
	}
	if apiKey != "" {
		flags["api-key"] = apiKey
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if cfg.Snapshot.Path == "" {
		ui.PrintError("No snapshot file specified", "Provide one with --snapshot or CHSAMPLER_SNAPSHOT_PATH")
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Info("chsampler starting")

	// Resolve the API key if the config did not carry one
	if cfg.API.Key == "" {
		credManager, err := auth.NewManager()
		if err != nil {
			ui.PrintError("Failed to initialize credential manager", err.Error())
			os.Exit(1)
		}

		var account *auth.Account
		if accountLabel != "" {
			account, err = credManager.Retrieve(accountLabel)
			if err != nil {
				ui.PrintError("Account not found", accountLabel)
				ui.PrintInfo("Available accounts", "Use 'chsampler auth list' to see stored accounts")
				os.Exit(1)
			}
		} else {
			account, err = credManager.RetrieveDefault()
			if err != nil {
				logger.Error("No API key found")
				ui.PrintError("No Companies House API key found", "")
				fmt.Println("\nTo store a key securely, run:")
				fmt.Println("  chsampler auth login")
				fmt.Println("\nYou can also set an environment variable:")
				fmt.Println("  export CHSAMPLER_API_KEY=your_api_key")
				os.Exit(1)
			}
		}

		cfg.API.Key = account.APIKey
		logger.WithField("account", account.Label).Info("Using stored credentials")
		ui.PrintInfo("Using account", account.Label)
	}

	ui.PrintInfo("Snapshot", cfg.Snapshot.Path)
	ui.PrintInfo("Output", cfg.Output.Path)
	ui.PrintInfo("Sample size", fmt.Sprintf("%d", cfg.Sample.Size))

	// Stop between companies on Ctrl-C; the final flush still runs
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := companieshouse.NewClient(cfg, logger.GetLogger())
	s := sampler.New(cfg, client)

	if err := s.Run(ctx); err != nil {
		logger.WithError(err).Error("Sampling run failed")
		ui.PrintError("Sampling run failed", err.Error())
		os.Exit(1)
	}

	if ctx.Err() != nil {
		logger.Warn("Sampling run interrupted, progress saved")
		ui.PrintWarning("Interrupted, progress saved. Rerun to continue.")
		return
	}

	logger.Info("Sampling run completed")
	ui.PrintSuccess("Sampling run completed: " + cfg.Output.Path)
}
