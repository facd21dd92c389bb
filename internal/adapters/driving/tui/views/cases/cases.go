// Package cases provides the case picker view for the TUI.
package cases

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// View lets the clinician filter the case list and pick a case.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.FilterInput
	list      *list.CaseList
	statusbar *status.Bar

	form driving.FormService
	ctx  context.Context

	width   int
	height  int
	loading bool
	err     error
}

// NewView creates a new case picker view.
func NewView(s *styles.Styles, km *keymap.KeyMap, form driving.FormService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.Set(status.StateLoading, "Loading cases...")

	return &View{
		styles:    s,
		keymap:    km,
		input:     input.NewFilterInput(s),
		list:      list.NewCaseList(s),
		statusbar: bar,
		form:      form,
		ctx:       context.Background(),
		width:     80,
		height:    24,
		loading:   true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the filter cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the case picker.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.CasesLoaded:
		v.handleCasesLoaded(msg)
		return v, nil

	case messages.CaseSelected:
		v.loading = false
		if msg.Err != nil {
			v.setError(msg.Err)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v *View) handleCasesLoaded(msg messages.CasesLoaded) {
	v.loading = false
	v.list.SetCases(msg.Cases)
	v.list.SetFilter(v.input.Value())
	if msg.Err != nil && len(msg.Cases) == 0 {
		v.setError(msg.Err)
		return
	}
	v.err = nil
	if msg.Err != nil {
		v.statusbar.Set(status.StateError, "Refresh failed, showing cached cases: "+msg.Err.Error())
		return
	}
	v.statusbar.Set(status.StateReady, "")
}

func (v *View) setError(err error) {
	v.err = err
	if err != nil {
		v.statusbar.Set(status.StateError, err.Error())
	}
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyUp, tea.KeyDown:
		v.list.Update(msg)
		return v, nil
	case tea.KeyEnter:
		return v, v.selectCase()
	case tea.KeyEsc:
		if v.input.Value() != "" {
			v.input.Reset()
			v.list.SetFilter("")
		}
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	v.list.SetFilter(v.input.Value())
	return v, cmd
}

// selectCase asks the form controller to make the highlighted case current.
func (v *View) selectCase() tea.Cmd {
	c := v.list.SelectedCase()
	if c == nil || v.form == nil || v.loading {
		return nil
	}
	v.loading = true
	v.statusbar.Set(status.StateLoading, "Checking "+c.ID+" for prior submissions...")

	ctx := v.ctx
	form := v.form
	id := c.ID
	return func() tea.Msg {
		view, err := form.SelectCase(ctx, id)
		return messages.CaseSelected{View: view, Err: err}
	}
}

// View renders the case picker.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("R3 Clinical Form"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Select a case to start or resume an assessment"))
	b.WriteString("\n\n")
	b.WriteString(v.input.View())
	b.WriteString("\n\n")

	switch {
	case v.loading && v.list.Count() == 0:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil && v.list.Count() == 0:
		b.WriteString(v.styles.Error.Render("Could not load cases: " + v.err.Error()))
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("Press ctrl+r to retry"))
	default:
		b.WriteString(v.list.View())
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-8)
	v.statusbar.SetWidth(width)
}

// Loading reports whether a load or selection is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// SetLoading marks a reload in flight.
func (v *View) SetLoading(message string) {
	v.loading = true
	v.statusbar.Set(status.StateLoading, message)
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Count returns the number of visible cases.
func (v *View) Count() int {
	return v.list.Count()
}
