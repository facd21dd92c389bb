package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var casesCmd = &cobra.Command{
	Use:   "cases [filter]",
	Short: "List cases from the case list sheet",
	Long: `List every case id and name from the case list sheet.

The list is served from the local cache while it is fresh. Pass --refresh
to bypass the cache. An optional filter keeps cases whose id or name
contains the text, ignoring case.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCases,
}

func init() {
	casesCmd.Flags().Bool("refresh", false, "bypass the cache and reload remote data")
	rootCmd.AddCommand(casesCmd)
}

func runCases(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	form, err := requireForm(ctx)
	if err != nil {
		return fmt.Errorf("loading cases: %w", err)
	}
	defer flushForm(ctx)

	refresh, err := cmd.Flags().GetBool("refresh")
	if err != nil {
		return fmt.Errorf("getting refresh flag: %w", err)
	}
	if refresh {
		if err := form.Refresh(ctx); err != nil {
			return fmt.Errorf("refreshing: %w", err)
		}
	}

	var filter string
	if len(args) > 0 {
		filter = strings.ToLower(strings.TrimSpace(args[0]))
	}

	selected := form.State().CaseID
	shown := 0
	for _, c := range form.Cases() {
		if filter != "" && !strings.Contains(strings.ToLower(c.Label()), filter) {
			continue
		}
		marker := " "
		if c.ID == selected {
			marker = "*"
		}
		cmd.Printf("%s %s\n", marker, c.Label())
		shown++
	}

	if shown == 0 {
		cmd.Println("No cases found.")
		return nil
	}
	cmd.Printf("\n%d case(s)\n", shown)
	return nil
}
