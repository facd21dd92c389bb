package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Inspect and edit the form in progress",
	Long: `Inspect and edit the R3 form in progress.

Edits are saved locally and survive between runs until the form is
submitted or cleared.`,
	RunE: runFormShow,
}

var formShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the form in progress",
	RunE:  runFormShow,
}

var formSelectCmd = &cobra.Command{
	Use:   "select <case-id>",
	Short: "Select the case to assess",
	Long: `Select the case to assess and check it for a prior submission.

If the case already has a row in the submission log, submitting will
update that row.`,
	Args: cobra.ExactArgs(1),
	RunE: runFormSelect,
}

var formSetCmd = &cobra.Command{
	Use:   "set <field> <value...>",
	Short: "Set a form field",
	Long: `Set a form field. Use "-" as the value to read it from stdin.

Fields:
  observations     Key Clinical Observations
  strengths        Strengths & Abilities
  priorities       Priority Support Areas
  recommendations  Support Recommendations
  asc              ASC status
  adhd             ADHD status
  remarks          Referral remarks

Free-text values longer than the configured limit are cut.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFormSet,
}

var formReferCmd = &cobra.Command{
	Use:   "refer <option>",
	Short: "Check a professional referral",
	Args:  cobra.ExactArgs(1),
	RunE:  runFormRefer,
}

var formClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset the form and discard the saved copy",
	RunE:  runFormClear,
}

func init() {
	formReferCmd.Flags().Bool("remove", false, "uncheck the referral instead")

	formCmd.AddCommand(formShowCmd)
	formCmd.AddCommand(formSelectCmd)
	formCmd.AddCommand(formSetCmd)
	formCmd.AddCommand(formReferCmd)
	formCmd.AddCommand(formClearCmd)
	rootCmd.AddCommand(formCmd)
}

// fieldAliases maps command line names to form fields.
var fieldAliases = map[string]domain.FieldID{
	"observations":    domain.FieldClinicalObservations,
	"strengths":       domain.FieldStrengthsAbilities,
	"priorities":      domain.FieldPrioritySupport,
	"recommendations": domain.FieldSupportRecommendations,
}

func runFormShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	form, err := requireForm(ctx)
	if err != nil {
		return fmt.Errorf("loading form: %w", err)
	}

	state := form.State()
	printForm(cmd, state, form.Cases())

	if lookup := form.Lookup(); lookup.Found && lookup.CaseID == state.CaseID {
		cmd.Println()
		cmd.Printf("Warning: %s already has a submission (row %d). Submitting will update it.\n",
			lookup.CaseID, lookup.RowID)
	}
	if missing := state.Missing(); len(missing) > 0 {
		cmd.Println()
		cmd.Printf("Missing before submit: %s\n", strings.Join(missing, ", "))
	}
	return nil
}

func printForm(cmd *cobra.Command, state domain.FormState, cases []domain.CaseRecord) {
	caseLabel := "(none)"
	if state.CaseID != "" {
		caseLabel = state.CaseID
		if c, ok := domain.FindCase(cases, state.CaseID); ok {
			caseLabel = c.Label()
		}
	}

	cmd.Println("R3 Form")
	cmd.Println("=======")
	cmd.Printf("Case:        %s\n", caseLabel)
	cmd.Printf("ASC status:  %s\n", valueOr(state.Status.ASC, "(not set)"))
	cmd.Printf("ADHD status: %s\n", valueOr(state.Status.ADHD, "(not set)"))

	for _, spec := range domain.DefaultFieldSpecs() {
		cmd.Println()
		cmd.Printf("[%s]\n", spec.Title)
		cmd.Println(valueOr(state.Fields[spec.ID], "(empty)"))
	}

	cmd.Println()
	cmd.Println("[Professional Referrals]")
	cmd.Println(state.Referrals.Encode())
}

func runFormSelect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	form, err := requireForm(ctx)
	if err != nil {
		return fmt.Errorf("loading form: %w", err)
	}
	defer flushForm(ctx)

	view, err := form.SelectCase(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("selecting case: %w", err)
	}

	cmd.Printf("Selected %s\n", view.Case.Label())
	for _, v := range view.Viewers {
		cmd.Printf("  %s: %s\n", v.Title, valueOr(v.URL, "not yet generated"))
	}
	if view.Existing != nil {
		cmd.Printf("Warning: a submission already exists (row %d, %s). Submitting will update it.\n",
			view.Existing.RowID, valueOr(view.Existing.Timestamp, "no timestamp"))
	}
	return nil
}

func runFormSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	form, err := requireForm(ctx)
	if err != nil {
		return fmt.Errorf("loading form: %w", err)
	}
	defer flushForm(ctx)

	name := strings.ToLower(args[0])
	value, err := readValue(cmd, args[1:])
	if err != nil {
		return err
	}

	switch name {
	case "asc", "adhd":
		status := form.State().Status
		if name == "asc" {
			status.ASC = value
		} else {
			status.ADHD = value
		}
		err = form.SetStatus(status)
	case "remarks":
		err = form.SetRemarks(value)
	default:
		field, ok := fieldAliases[name]
		if !ok {
			field = domain.FieldID(args[0])
		}
		err = form.SetValue(field, value)
	}
	if err != nil {
		return fmt.Errorf("setting %s: %w", args[0], err)
	}

	cmd.Printf("Set %s.\n", name)
	return nil
}

// readValue joins the arguments, or reads stdin when the only one is "-".
func readValue(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return strings.TrimRight(string(b), "\n"), nil
	}
	return strings.Join(args, " "), nil
}

func runFormRefer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	form, err := requireForm(ctx)
	if err != nil {
		return fmt.Errorf("loading form: %w", err)
	}
	defer flushForm(ctx)

	remove, err := cmd.Flags().GetBool("remove")
	if err != nil {
		return fmt.Errorf("getting remove flag: %w", err)
	}

	if err := form.ToggleReferral(args[0], !remove); err != nil {
		return fmt.Errorf("updating referrals: %w", err)
	}
	cmd.Println(form.State().Referrals.Encode())
	return nil
}

func runFormClear(cmd *cobra.Command, _ []string) error {
	if formService == nil {
		return errors.New("form service not configured")
	}
	if err := formService.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("clearing form: %w", err)
	}
	cmd.Println("Form cleared.")
	return nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
