package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload cases and submissions, bypassing the cache",
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	form, err := requireForm(ctx)
	if err != nil {
		return fmt.Errorf("loading form: %w", err)
	}
	defer flushForm(ctx)

	if err := form.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing: %w", err)
	}

	cmd.Printf("Loaded %d case(s).\n", len(form.Cases()))
	if lookup := form.Lookup(); lookup.Found {
		cmd.Printf("%s already has a submission (row %d).\n", lookup.CaseID, lookup.RowID)
	}
	return nil
}
