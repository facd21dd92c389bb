package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/r3form/internal/adapters/driving/tui"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/r3form/internal/logger"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive form",
	Long: `Launch the interactive terminal form.

Pick a case, fill in the status selectors, the four free-text fields and
the referrals checklist, then submit. Edits are saved automatically.
Changes to config.toml are picked up while the form is open.

Controls:
  ↑/↓        Navigate cases and referrals
  Enter      Select case
  Tab        Next field
  ←/→        Change ASC or ADHD status
  Space      Toggle referral
  Ctrl+S     Submit
  Ctrl+G     Generate report
  Ctrl+R     Refresh
  F1         Help
  Ctrl+C     Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := newTUIApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	app.WithContext(ctx)

	if configWatcher != nil {
		go func() {
			if err := configWatcher.Watch(ctx, func() { app.Notify(messages.ConfigChanged{}) }); err != nil {
				logger.Warn("config watcher stopped: %v", err)
			}
		}()
	}

	// Log lines would corrupt the alternate screen.
	prev := logger.SetOutput(io.Discard)
	defer logger.SetOutput(prev)

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	flushForm(context.WithoutCancel(ctx))
	return nil
}

func newTUIApp() (*tui.App, error) {
	ports := &tui.Ports{
		Form:      formService,
		Report:    reportService,
		Actions:   actionService,
		Settings:  settingsService,
		Notifiers: notifiers,
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	return app, nil
}
