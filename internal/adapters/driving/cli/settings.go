package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change r3form settings stored in config.toml.

Use "settings set <key> <value>" for any key, or the backend and token
subcommands for guided setup.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long: `Set a configuration key, e.g.

  r3form settings set remote.base_url https://api.sheety.co/abc/clinic
  r3form settings set cache.ttl 30m
  r3form settings set form.referral_options "Speech Pathology, Psychology"

List values are comma separated. Durations use Go syntax such as 1h or 500ms.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsBackendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Choose the remote backend",
	RunE:  runSettingsBackend,
}

var settingsTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Set the Sheety bearer token",
	Long:  `Prompt for the Sheety bearer token without echoing it.`,
	RunE:  runSettingsToken,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsBackendCmd)
	settingsCmd.AddCommand(settingsTokenCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", settingsService.ConfigPath())
	cmd.Println()

	r := settings.Remote
	cmd.Println("[Remote]")
	cmd.Printf("  Backend: %s\n", r.Backend.Description())
	switch r.Backend {
	case domain.RemoteBackendSheety:
		cmd.Printf("  Base URL: %s\n", valueOr(r.BaseURL, "(not set)"))
		cmd.Printf("  Case list: %s\n", r.CaseListResource)
		cmd.Printf("  Submissions: %s\n", r.SubmissionsResource)
		if r.Token != "" {
			cmd.Printf("  Token: %s\n", maskAPIKey(r.Token))
		} else {
			cmd.Printf("  Token: (not set)\n")
		}
	case domain.RemoteBackendSheets:
		cmd.Printf("  Spreadsheet: %s\n", valueOr(r.SpreadsheetID, "(not set)"))
		cmd.Printf("  Case list sheet: %s\n", r.CaseListSheet)
		cmd.Printf("  Submissions sheet: %s\n", r.SubmissionsSheet)
		cmd.Printf("  Credentials: %s\n", valueOr(r.CredentialsFile, "(application default)"))
	}
	cmd.Printf("  Rate limit: %s req/s\n", strconv.FormatFloat(r.RequestsPerSecond, 'f', -1, 64))
	cmd.Printf("  Timeout: %s\n", r.Timeout)
	cmd.Printf("  Status: %s\n", configured(r.IsConfigured()))
	cmd.Println()

	cmd.Println("[Cache]")
	cmd.Printf("  TTL: %s\n", settings.Cache.TTL)
	cmd.Printf("  Minimum case rows: %d\n", settings.Cache.MinCaseRows)
	cmd.Printf("  Key prefix: %s\n", settings.Cache.KeyPrefix)
	cmd.Println()

	cmd.Println("[Form]")
	cmd.Printf("  Autosave delay: %s\n", settings.Form.Debounce)
	cmd.Printf("  Character limit: %d\n", settings.Form.CharLimit)
	cmd.Printf("  Referral options: %s\n", strings.Join(settings.Form.ReferralOptions, ", "))
	cmd.Println()

	cmd.Println("[Report]")
	for _, stage := range domain.AllReportStages() {
		cmd.Printf("  %s script: %s\n", stage, valueOr(settings.Report.StageURLs[stage], "(not set)"))
	}
	cmd.Printf("  Verify: %d attempts, %s apart\n", settings.Report.VerifyAttempts, settings.Report.VerifyInterval)
	cmd.Printf("  Status: %s\n", configured(settings.Report.IsConfigured()))
	cmd.Println()

	printSchema(cmd, settings.Schema)

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func printSchema(cmd *cobra.Command, schema domain.WireSchema) {
	cmd.Println("[Schema]")
	cmd.Printf("  Case id: %s\n", strings.Join(schema.Case.ID, ", "))
	cmd.Printf("  Case name: %s\n", strings.Join(schema.Case.Name, ", "))
	cmd.Printf("  Submission case id: %s\n", strings.Join(schema.Submission.CaseID, ", "))
	cmd.Printf("  Submission timestamp: %s\n", strings.Join(schema.Submission.Timestamp, ", "))
	for _, f := range domain.AllFields() {
		cmd.Printf("  %s: %s\n", f, strings.Join(schema.Submission.Fields[f], ", "))
	}
	cmd.Println()
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s.\n", args[0])
	return nil
}

func runSettingsBackend(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Remote Backend")
	cmd.Println("---------------------")
	backends := domain.AllRemoteBackends()
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(backends), 1)
	selected := backends[idx-1]

	if err := settingsService.Set("remote.backend", string(selected)); err != nil {
		return fmt.Errorf("failed to set backend: %w", err)
	}
	cmd.Printf("Backend set to: %s\n", selected.Description())
	return nil
}

func runSettingsToken(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Print("Enter Sheety token: ")
	token := readPassword(cmd)
	cmd.Println()
	if token == "" {
		return errors.New("token is required")
	}

	if err := settingsService.Set("remote.token", token); err != nil {
		return fmt.Errorf("failed to set token: %w", err)
	}
	cmd.Printf("Token saved: %s\n", maskAPIKey(token))
	return nil
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo on a terminal and falls back to a line.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(cmd *cobra.Command) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(bufio.NewReader(cmd.InOrStdin()))
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
