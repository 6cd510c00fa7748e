package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chsampler/pkg/auth"
	"chsampler/pkg/config"
	"chsampler/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage chsampler configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (CHSAMPLER_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.chsampler.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration merged from all sources. The API
key is masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".chsampler.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# chsampler configuration file
#
# Every option can also be set through environment variables prefixed
# with CHSAMPLER_, for example CHSAMPLER_API_KEY, CHSAMPLER_SNAPSHOT_PATH.

# Registry snapshot CSV used as the sampling universe
snapshot:
  # Path to the bulk export CSV (required for 'run')
  path: ""

  # Column holding the company number
  id_column: "CompanyNumber"

  # Column and value identifying active companies
  status_column: "CompanyStatus"
  active_status: "Active"

# Sampling and checkpoint loop
sample:
  # Number of companies to sample
  size: 1000

  # Companies fetched between checkpoint writes
  checkpoint_interval: 50

# Result store
output:
  path: "overseas_directors_sample.json"

# Companies House API
api:
  base_url: "https://api.company-information.service.gov.uk"

  # API key; prefer 'chsampler auth login' over putting it here
  key: ""

  # Request timeout
  timeout: 30s

# Rate limiting (the public API allows 600 requests per 5 minutes)
rate_limit:
  requests: 600
  window: 5m

# Retry policy for officer page requests
retry:
  max_attempts: 2
  delay: 5s

# Analyze command settings
analysis:
  variants_file: "overseas_companies_UK_variants.txt"

# Logging
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path; empty logs to the console only
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set the snapshot path and adjust the sample size")
	fmt.Println("2. Run 'chsampler config validate' to check the configuration")
	fmt.Println("3. Start sampling with 'chsampler run'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Mask the API key for display
	displayCfg := *cfg
	if displayCfg.API.Key != "" {
		displayCfg.API.Key = auth.MaskKey(displayCfg.API.Key)
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (CHSAMPLER_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			".chsampler.yaml",
			".chsampler.yml",
			filepath.Join(os.Getenv("HOME"), ".chsampler.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "chsampler", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	warnings := []string{}
	errors := []string{}

	if cfg.API.Key == "" {
		warnings = append(warnings, "API key not configured; 'run' will fall back to stored credentials")
	}

	if cfg.Snapshot.Path == "" {
		warnings = append(warnings, "snapshot path not configured; 'run' requires --snapshot")
	} else if _, err := os.Stat(cfg.Snapshot.Path); err != nil {
		errors = append(errors, fmt.Sprintf("snapshot file not accessible: %v", err))
	}

	if cfg.Output.Path != "" {
		dir := filepath.Dir(cfg.Output.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create output directory: %v", err))
		}
	}

	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if cfg.Sample.Size > 10000 {
		warnings = append(warnings, "sample sizes above 10000 will take days at the public API rate limit")
	}

	if len(errors) > 0 {
		ui.PrintError("Configuration has errors:", "")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Snapshot: %s\n", cfg.Snapshot.Path)
	fmt.Printf("  Output: %s\n", cfg.Output.Path)
	fmt.Printf("  Sample size: %d\n", cfg.Sample.Size)
	fmt.Printf("  Checkpoint interval: %d\n", cfg.Sample.CheckpointInterval)
	fmt.Printf("  Rate limit: %d requests / %s\n", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
