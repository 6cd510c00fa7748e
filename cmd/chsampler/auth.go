package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"chsampler/pkg/auth"
	"chsampler/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Companies House API keys",
	Long: `Manage stored Companies House API keys securely.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (CHSAMPLER_API_KEY, read only)

Get an API key by registering an application at
https://developer.company-information.service.gov.uk/`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [label]",
	Short: "Store a Companies House API key securely",
	Long: `Store a Companies House API key in the system keychain or an
encrypted file.

The label distinguishes multiple keys, for example a live and a sandbox
key. When omitted it defaults to "default".`,
	Example: `  # Store the default key
  chsampler auth login

  # Store a second key under a label
  chsampler auth login sandbox`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// listAccountsCmd represents the auth list command
var listAccountsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored API keys",
	Long:  `List all stored API keys with masked values.`,
	Run:   runList,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:     "logout [label]",
	Aliases: []string{"remove"},
	Short:   "Remove a stored API key",
	Long: `Remove a stored API key. When no label is provided the "default"
key is removed.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(listAccountsCmd)
	authCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	label := "default"
	if len(args) > 0 {
		label = strings.TrimSpace(args[0])
	}
	if label == "" {
		ui.PrintError("Label cannot be empty", "")
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	// Confirm before overwriting an existing key
	if existing, _ := manager.Retrieve(label); existing != nil {
		fmt.Printf("A key labelled '%s' already exists. Replace it? (y/N): ", label)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("API key (input is hidden): ")
	apiKey, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read API key", err.Error())
		os.Exit(1)
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		ui.PrintError("API key cannot be empty", "")
		os.Exit(1)
	}

	account := &auth.Account{
		Label:        label,
		APIKey:       apiKey,
		LastModified: time.Now(),
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store API key", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("API key stored: " + label)
	fmt.Println("\nStart a sampling run with:")
	fmt.Println("  chsampler run --snapshot <export.csv>")
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored keys", "Use 'chsampler auth login' to add one")
		return
	}

	for i, account := range accounts {
		fmt.Printf("%d. Label: %s\n", i+1, account.Label)
		fmt.Printf("   API Key: %s\n", auth.MaskKey(account.APIKey))
		fmt.Printf("   Last Modified: %s\n", account.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	label := "default"
	if len(args) > 0 {
		label = args[0]
	}

	if err := manager.Delete(label); err != nil {
		ui.PrintError("Failed to remove key", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Key removed: " + label)
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
