// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/styles"
)

// FilterInput wraps a bubbles textinput used to narrow the case list.
type FilterInput struct {
	textinput textinput.Model
	styles    *styles.Styles
}

// NewFilterInput creates a focused filter input.
func NewFilterInput(s *styles.Styles) *FilterInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Type a case id or name..."
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	return &FilterInput{textinput: ti, styles: s}
}

// Init starts the cursor blinking.
func (f *FilterInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (f *FilterInput) Update(msg tea.Msg) (*FilterInput, tea.Cmd) {
	var cmd tea.Cmd
	f.textinput, cmd = f.textinput.Update(msg)
	return f, cmd
}

// View renders the input with its label.
func (f *FilterInput) View() string {
	label := f.styles.Title.Render("Case: ")
	field := f.styles.FieldFocused.Render(f.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current input value.
func (f *FilterInput) Value() string {
	return f.textinput.Value()
}

// SetValue sets the input value.
func (f *FilterInput) SetValue(value string) {
	f.textinput.SetValue(value)
}

// SetWidth sets the width of the input, leaving room for the label.
func (f *FilterInput) SetWidth(width int) {
	w := width - 12
	if w < 20 {
		w = 20
	}
	f.textinput.Width = w
}

// Reset clears the input.
func (f *FilterInput) Reset() {
	f.textinput.Reset()
}
