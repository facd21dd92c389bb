package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the form for the selected case",
	Long: `Submit the form for the selected case.

A case without a prior submission gets a new row. A case that already has
one has that row updated; you are asked to confirm unless --yes is given.
After a successful submit the local cache is cleared so the next read
sees the new row. With --clear the form is then reset for the next case;
on a terminal you are asked instead.`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().BoolP("yes", "y", false, "update an existing submission without asking")
	submitCmd.Flags().Bool("clear", false, "clear the form after a successful submit")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	form, err := requireForm(ctx)
	if err != nil {
		return fmt.Errorf("loading form: %w", err)
	}
	defer flushForm(ctx)

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("getting yes flag: %w", err)
	}
	clearAfter, err := cmd.Flags().GetBool("clear")
	if err != nil {
		return fmt.Errorf("getting clear flag: %w", err)
	}

	state := form.State()
	if lookup := form.Lookup(); lookup.Found && lookup.CaseID == state.CaseID && !yes {
		ok, err := confirm(cmd, fmt.Sprintf("%s already has a submission (row %d). Update it?", lookup.CaseID, lookup.RowID))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Submit cancelled.")
			return nil
		}
	}

	result, err := form.Submit(ctx)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.Message)
		}
		var serr *domain.SubmitError
		if errors.As(err, &serr) && serr.Body != "" {
			cmd.PrintErrf("Server response: %s\n", serr.Body)
		}
		return fmt.Errorf("submitting: %w", err)
	}

	if result.Updated {
		cmd.Printf("Updated submission for %s (row %d).\n", result.CaseID, result.RowID)
	} else {
		cmd.Printf("Submitted %s (row %d).\n", result.CaseID, result.RowID)
	}

	if !clearAfter && isTerminal(cmd) {
		clearAfter, _ = confirm(cmd, "Clear the form?")
	}
	if clearAfter {
		if err := form.Clear(ctx); err != nil {
			return fmt.Errorf("clearing form: %w", err)
		}
		cmd.Println("Form cleared.")
	}
	return nil
}

// confirm asks a yes/no question on an interactive terminal.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if !isTerminal(cmd) {
		return false, errors.New("refusing to update an existing submission without --yes")
	}
	cmd.Printf("%s [y/N]: ", question)
	answer := readLine(bufio.NewReader(cmd.InOrStdin()))
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// isTerminal reports whether the command reads from an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
