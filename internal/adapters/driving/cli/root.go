// Package cli provides the r3form command-line interface built on cobra.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/r3form/internal/adapters/driving/tui"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
	"github.com/custodia-labs/r3form/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services set by SetServices. Commands check them for nil so a partially
// configured install still answers version and settings.
var (
	settingsService   driving.SettingsService
	formService       driving.FormService
	submissionService driving.SubmissionService
	cacheService      driving.CacheService
	reportService     driving.ReportService
	actionService     driving.ViewerActionService
	notifiers         tui.NotifierRegistry
	configWatcher     ConfigWatcher
)

// ConfigWatcher reports edits to the configuration file.
type ConfigWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Services groups the dependencies the commands drive.
type Services struct {
	Settings    driving.SettingsService
	Form        driving.FormService
	Submissions driving.SubmissionService
	Cache       driving.CacheService
	Report      driving.ReportService
	Actions     driving.ViewerActionService
	Notifiers   tui.NotifierRegistry
	Watcher     ConfigWatcher
}

// SetServices installs the services used by every command.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	settingsService = s.Settings
	formService = s.Form
	submissionService = s.Submissions
	cacheService = s.Cache
	reportService = s.Report
	actionService = s.Actions
	notifiers = s.Notifiers
	configWatcher = s.Watcher
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Options are the global flags passed to the bootstrap function.
type Options struct {
	ConfigDir string
	DataDir   string
	Verbose   bool
}

// BootstrapFunc builds the services once flags are parsed. The returned
// cleanup runs after the command finishes.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, func() error, error)

var (
	bootstrap BootstrapFunc
	cleanup   func() error
	opts      Options
)

// SetBootstrap registers the function that wires services for a run.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// skipBootstrap marks commands that never touch services.
const skipBootstrap = "skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "r3form",
	Short: "Record R3 clinical assessments against a shared spreadsheet",
	Long: `r3form fills in and submits the R3 clinical assessment form.

Cases and prior submissions are read from a spreadsheet exposed through
Sheety or the Google Sheets API. Reads are cached locally, the form in
progress is saved after every edit, and submitting a case that already
has a row updates that row instead of adding a duplicate.

Run 'r3form tui' for the interactive form or use the form, submit and
report commands from scripts.`,
	SilenceUsage:       true,
	PersistentPreRunE:  runBootstrap,
	PersistentPostRunE: runPostRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.r3form)")
	rootCmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory (default ~/.r3form/data)")
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] != "" {
		return nil
	}
	services, done, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	SetServices(services)
	cleanup = done
	return nil
}

func runPostRun(*cobra.Command, []string) error {
	return runCleanup()
}

func runCleanup() error {
	if cleanup == nil {
		return nil
	}
	done := cleanup
	cleanup = nil
	return done()
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with a context.
// Cleanup also runs when the command fails.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := runCleanup(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// requireForm returns the form service after loading cases and the saved form.
func requireForm(ctx context.Context) (driving.FormService, error) {
	if formService == nil {
		return nil, errors.New("form service not configured")
	}
	if err := formService.Init(ctx); err != nil {
		return nil, err
	}
	return formService, nil
}

// flushForm writes any pending edit before the process exits.
func flushForm(ctx context.Context) {
	if formService == nil {
		return
	}
	if err := formService.Flush(ctx); err != nil {
		logger.Warn("save form: %v", err)
	}
}
