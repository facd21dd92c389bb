package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

var reportCmd = &cobra.Command{
	Use:   "report [case-id]",
	Short: "Generate the assessment document for a case",
	Long: `Generate the assessment document for a submitted case.

The submission log is polled until the case is visible, then the
template, analysis and report scripts run in order. The report script
returns the document URL and emails it to the clinic.

Without a case id the currently selected case is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

var reportCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Ping every report script endpoint",
	RunE:  runReportCheck,
}

func init() {
	reportCmd.Flags().Bool("copy", false, "copy the document URL to the clipboard")
	reportCmd.Flags().Bool("open", false, "open the document in the default browser")
	reportCmd.AddCommand(reportCheckCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}
	ctx := cmd.Context()

	var caseID string
	if len(args) > 0 {
		caseID = args[0]
	} else {
		form, err := requireForm(ctx)
		if err != nil {
			return fmt.Errorf("loading form: %w", err)
		}
		caseID = form.State().CaseID
	}
	if caseID == "" {
		return errors.New("no case selected, pass a case id")
	}

	result, err := reportService.Generate(ctx, caseID, func(_ string, message string) {
		cmd.Println(message)
	})
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	cmd.Println()
	cmd.Printf("Document: %s\n", result.DocumentURL)
	if result.EmailSent {
		cmd.Printf("Emailed to %s\n", result.Recipient)
	} else {
		cmd.Printf("Email not sent: %s\n", valueOr(result.EmailError, "unknown error"))
	}

	return documentActions(cmd, result.DocumentURL)
}

func documentActions(cmd *cobra.Command, url string) error {
	copyURL, err := cmd.Flags().GetBool("copy")
	if err != nil {
		return fmt.Errorf("getting copy flag: %w", err)
	}
	openDoc, err := cmd.Flags().GetBool("open")
	if err != nil {
		return fmt.Errorf("getting open flag: %w", err)
	}
	if (!copyURL && !openDoc) || url == "" {
		return nil
	}
	if actionService == nil {
		return errors.New("action service not configured")
	}

	if copyURL {
		if err := actionService.CopyToClipboard(cmd.Context(), url); err != nil {
			return fmt.Errorf("copying URL: %w", err)
		}
		cmd.Println("URL copied to clipboard.")
	}
	if openDoc {
		slot := domain.ViewerSlot{Title: "Document", URL: url}
		if err := actionService.Open(cmd.Context(), slot); err != nil {
			return fmt.Errorf("opening document: %w", err)
		}
	}
	return nil
}

func runReportCheck(cmd *cobra.Command, _ []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	results := reportService.Check(cmd.Context())
	stages := make([]domain.ReportStage, 0, len(results))
	for stage := range results {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool {
		return stageOrder(stages[i]) < stageOrder(stages[j])
	})

	failed := 0
	for _, stage := range stages {
		if err := results[stage]; err != nil {
			cmd.Printf("  %-10s FAILED: %v\n", stage, err)
			failed++
			continue
		}
		cmd.Printf("  %-10s OK\n", stage)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d report stages failed", failed, len(stages))
	}
	return nil
}

func stageOrder(s domain.ReportStage) int {
	for i, stage := range domain.AllReportStages() {
		if stage == s {
			return i
		}
	}
	return len(domain.AllReportStages())
}
