package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chsampler/pkg/analysis"
	"chsampler/pkg/config"
	"chsampler/pkg/store"
	"chsampler/pkg/ui"
)

var (
	// Analyze command flags
	inputPath     string
	variantsPath  string
	listCountries bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarise director origins and compliance for a completed sample",
	Long: `Analyze a result store produced by 'chsampler run'.

Companies are split into two groups by whether they have at least one
director whose stated country of residence and service address country
are both recognised UK spellings. The report covers group sizes with
95% margins of error, directors claiming UK residence from a non-UK
address, and compliance indicators per group: overdue confirmation
statements, overdue accounts, and use of the registrar's default
address.

The UK spelling variants file lists one accepted spelling per line.
Run with --countries first to see every country string in the sample
and extend the list where needed.`,
	Example: `  # Analyze the default result store
  chsampler analyze

  # Analyze a specific file with a custom variants list
  chsampler analyze --input pilot.json --variants uk_variants.txt

  # List the distinct country strings directors reported
  chsampler analyze --countries`,
	Args: cobra.NoArgs,
	Run:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the JSON result store")
	analyzeCmd.Flags().StringVar(&variantsPath, "variants", "", "path to the UK spelling variants file")
	analyzeCmd.Flags().BoolVar(&listCountries, "countries", false, "list distinct director countries and exit")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if inputPath != "" {
		flags["output"] = inputPath
	}
	if variantsPath != "" {
		flags["variants"] = variantsPath
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	resultPath := cfg.Output.Path
	if _, err := os.Stat(resultPath); err != nil {
		ui.PrintError("Result store not found", resultPath)
		fmt.Println("\nRun the sampler first:")
		fmt.Println("  chsampler run --snapshot <export.csv>")
		os.Exit(1)
	}

	doc, err := store.NewManager(resultPath).Load()
	if err != nil {
		ui.PrintError("Failed to load result store", err.Error())
		os.Exit(1)
	}

	if len(doc.SampledCompanies) == 0 {
		ui.PrintError("Result store contains no fetched companies", resultPath)
		os.Exit(1)
	}

	if listCountries {
		for _, country := range analysis.DirectorCountries(doc.SampledCompanies) {
			fmt.Println(country)
		}
		return
	}

	variants, err := analysis.LoadUKVariants(cfg.Analysis.VariantsFile)
	if err != nil {
		ui.PrintError("Failed to load UK variants", err.Error())
		os.Exit(1)
	}

	printReport(doc, variants)
}

func printReport(doc *store.Document, variants map[string]bool) {
	counts := analysis.CountByUKDirectorStatus(doc.SampledCompanies, variants)
	total := counts.TotalCompanies()

	fmt.Printf("Sample: %d companies fetched (target %d, started %s)\n\n",
		total, doc.Metadata.SampleSize, doc.Metadata.StartedAt.Format("2006-01-02"))

	pWith, moeWith := analysis.Proportion(counts.WithUK, total)
	pWithout, moeWithout := analysis.Proportion(counts.WithoutUK, total)

	fmt.Println("UK director presence:")
	fmt.Printf("  With UK-resident director:    %4d  (%.1f%% ± %.1f%%)\n", counts.WithUK, pWith*100, moeWith*100)
	fmt.Printf("  Without UK-resident director: %4d  (%.1f%% ± %.1f%%)\n", counts.WithoutUK, pWithout*100, moeWithout*100)
	fmt.Printf("  Directors claiming UK residence from a non-UK address: %d of %d\n\n",
		counts.QuestionableResidence, counts.TotalDirectors)

	compliance := analysis.Compliance(doc.SampledCompanies, variants, time.Now())
	withUK := compliance[analysis.GroupWithUK]
	withoutUK := compliance[analysis.GroupWithoutUK]

	fmt.Println("Compliance indicators:")
	printComplianceRow("Overdue confirmation statement", withUK.LateConfirmation, counts.WithUK, withoutUK.LateConfirmation, counts.WithoutUK)
	printComplianceRow("Overdue accounts", withUK.LateAccounts, counts.WithUK, withoutUK.LateAccounts, counts.WithoutUK)
	printComplianceRow("Registrar's default address", withUK.DefaultAddress, counts.WithUK, withoutUK.DefaultAddress, counts.WithoutUK)
}

// printComplianceRow prints one indicator for both groups plus the rate
// ratio of the without-UK group over the with-UK group
func printComplianceRow(label string, withCount, withTotal, withoutCount, withoutTotal int) {
	pWith, moeWith := analysis.Proportion(withCount, withTotal)
	pWithout, moeWithout := analysis.Proportion(withoutCount, withoutTotal)

	fmt.Printf("  %s:\n", label)
	fmt.Printf("    with UK director:    %4d / %-4d (%.1f%% ± %.1f%%)\n", withCount, withTotal, pWith*100, moeWith*100)
	fmt.Printf("    without UK director: %4d / %-4d (%.1f%% ± %.1f%%)\n", withoutCount, withoutTotal, pWithout*100, moeWithout*100)

	if ratio, moe := analysis.RatioWithError(pWithout, moeWithout, pWith, moeWith); ratio > 0 {
		fmt.Printf("    rate ratio (without/with): %.2f ± %.2f\n", ratio, moe)
	}
}
