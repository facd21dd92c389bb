// Package form provides the R3 assessment form view for the TUI.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// slotKind identifies what a focus position edits.
type slotKind int

const (
	slotASC slotKind = iota
	slotADHD
	slotText
	slotReferrals
	slotRemarks
)

type slot struct {
	kind  slotKind
	field int
}

// Deps holds the services the form view drives.
type Deps struct {
	Form     driving.FormService
	Actions  driving.ViewerActionService
	Report   driving.ReportService
	Settings domain.FormSettings
}

// View edits the form for the selected case.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusbar *status.Bar

	form     driving.FormService
	actions  driving.ViewerActionService
	report   driving.ReportService
	settings domain.FormSettings
	specs    []domain.FieldSpec
	progress domain.ReportProgress
	ctx      context.Context

	areas   []textarea.Model
	remarks textinput.Model
	slots   []slot
	focus   int
	cursor  int

	caseView    *domain.CaseView
	existing    *domain.SubmissionRecord
	documentURL string
	busy        bool

	width  int
	height int
}

// NewView creates a new form view.
func NewView(s *styles.Styles, km *keymap.KeyMap, deps Deps) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	specs := deps.Settings.FieldSpecs()
	areas := make([]textarea.Model, len(specs))
	slots := []slot{{kind: slotASC}, {kind: slotADHD}}
	for i, spec := range specs {
		ta := textarea.New()
		ta.Placeholder = spec.Title
		ta.ShowLineNumbers = false
		ta.CharLimit = spec.CharLimit
		ta.SetHeight(6)
		areas[i] = ta
		slots = append(slots, slot{kind: slotText, field: i})
	}
	slots = append(slots, slot{kind: slotReferrals}, slot{kind: slotRemarks})

	remarks := textinput.New()
	remarks.Placeholder = "Additional remarks"
	remarks.CharLimit = deps.Settings.CharLimit

	bar := status.NewBar(s, km)
	bar.SetHints(km.FormHelp())

	v := &View{
		styles:    s,
		keymap:    km,
		statusbar: bar,
		form:      deps.Form,
		actions:   deps.Actions,
		report:    deps.Report,
		settings:  deps.Settings,
		specs:     specs,
		ctx:       context.Background(),
		areas:     areas,
		remarks:   remarks,
		slots:     slots,
	}
	v.SetDimensions(80, 24)
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetProgress sets the receiver for report progress messages.
func (v *View) SetProgress(progress domain.ReportProgress) {
	v.progress = progress
}

// SetSettings applies reloaded form settings. Field limits take effect
// for text entered afterwards.
func (v *View) SetSettings(settings domain.FormSettings) {
	v.settings = settings
	v.remarks.CharLimit = settings.CharLimit
	for i := range v.areas {
		v.areas[i].CharLimit = settings.CharLimit
	}
}

// Load shows a selected case and copies the form state into the inputs.
func (v *View) Load(cv *domain.CaseView) {
	v.caseView = cv
	v.existing = cv.Existing
	v.documentURL = ""
	v.busy = false

	state := v.form.State()
	for i, spec := range v.specs {
		v.areas[i].SetValue(state.Fields[spec.ID])
	}
	v.remarks.SetValue(state.Referrals.Remarks)
	v.cursor = 0
	v.setFocus(0)
	v.statusbar.Set(status.StateReady, "")
}

// Init starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the form view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.ExistingSubmission:
		v.existing = msg.Record
		return v, nil

	case messages.SubmitCompleted:
		v.handleSubmitted(msg)
		return v, nil

	case messages.ReportProgress:
		v.statusbar.Set(status.StateReporting, msg.Message)
		return v, nil

	case messages.ReportCompleted:
		v.handleReport(msg)
		return v, nil

	case messages.FormChanged:
		v.handleFormEvent(msg.Event)
		return v, nil

	case messages.ErrorOccurred:
		v.busy = false
		if msg.Err != nil {
			v.statusbar.Set(status.StateError, msg.Err.Error())
		}
		return v, nil
	}

	return v.forward(msg)
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewCases} }
	case keymap.Matches(k, v.keymap.NextField):
		v.setFocus(v.focus + 1)
		return v, nil
	case keymap.Matches(k, v.keymap.PrevField):
		v.setFocus(v.focus - 1)
		return v, nil
	case keymap.Matches(k, v.keymap.Submit):
		return v, v.submit()
	case keymap.Matches(k, v.keymap.Report):
		return v, v.generate()
	case keymap.Matches(k, v.keymap.Refresh):
		return v, v.refresh()
	case keymap.Matches(k, v.keymap.Clear):
		return v, v.clear()
	case keymap.Matches(k, v.keymap.OpenR1):
		return v, v.open(0)
	case keymap.Matches(k, v.keymap.OpenR2):
		return v, v.open(1)
	}

	switch v.current().kind {
	case slotASC, slotADHD:
		switch {
		case keymap.Matches(k, v.keymap.NextOption):
			v.cycleStatus(1)
		case keymap.Matches(k, v.keymap.PrevOption):
			v.cycleStatus(-1)
		}
		return v, nil

	case slotReferrals:
		switch {
		case keymap.Matches(k, v.keymap.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case keymap.Matches(k, v.keymap.Down):
			if v.cursor < len(v.settings.ReferralOptions)-1 {
				v.cursor++
			}
		case keymap.Matches(k, v.keymap.Toggle), keymap.Matches(k, v.keymap.Select):
			v.toggleReferral()
		}
		return v, nil

	case slotText, slotRemarks:
		return v.forward(msg)
	}
	return v, nil
}

// forward passes a message to the focused input and records the edit.
func (v *View) forward(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	cur := v.current()
	switch cur.kind {
	case slotText:
		before := v.areas[cur.field].Value()
		if km, ok := msg.(tea.KeyMsg); ok && km.Type == tea.KeyEnter {
			// New lines start with a bullet.
			v.areas[cur.field].InsertString("\n" + domain.Bullet)
		} else {
			v.areas[cur.field], cmd = v.areas[cur.field].Update(msg)
		}
		if after := v.areas[cur.field].Value(); after != before {
			v.showErr(v.form.SetValue(v.specs[cur.field].ID, after))
		}
	case slotRemarks:
		before := v.remarks.Value()
		v.remarks, cmd = v.remarks.Update(msg)
		if after := v.remarks.Value(); after != before {
			v.showErr(v.form.SetRemarks(after))
		}
	case slotASC, slotADHD, slotReferrals:
	}
	return v, cmd
}

func (v *View) showErr(err error) {
	if err != nil {
		v.statusbar.Set(status.StateError, err.Error())
	}
}

func (v *View) current() slot {
	return v.slots[v.focus]
}

func (v *View) setFocus(i int) {
	n := len(v.slots)
	v.focus = ((i % n) + n) % n

	for j := range v.areas {
		v.areas[j].Blur()
	}
	v.remarks.Blur()

	switch cur := v.current(); cur.kind {
	case slotText:
		v.areas[cur.field].Focus()
	case slotRemarks:
		v.remarks.Focus()
	case slotASC, slotADHD, slotReferrals:
	}
}

func (v *View) cycleStatus(delta int) {
	st := v.form.State().Status
	options, value := v.settings.ASCOptions, &st.ASC
	if v.current().kind == slotADHD {
		options, value = v.settings.ADHDOptions, &st.ADHD
	}
	if len(options) == 0 {
		return
	}

	idx := indexOf(options, *value)
	switch {
	case idx < 0 && delta < 0:
		idx = len(options) - 1
	case idx < 0:
		idx = 0
	default:
		idx = (idx + delta + len(options)) % len(options)
	}
	*value = options[idx]
	v.showErr(v.form.SetStatus(st))
}

func (v *View) toggleReferral() {
	options := v.settings.ReferralOptions
	if v.cursor < 0 || v.cursor >= len(options) {
		return
	}
	option := options[v.cursor]
	checked := v.form.State().Referrals.Has(option)
	v.showErr(v.form.ToggleReferral(option, !checked))
}

func (v *View) submit() tea.Cmd {
	if v.busy {
		return nil
	}
	v.busy = true
	v.statusbar.Set(status.StateSubmitting, "Submitting...")

	ctx, form := v.ctx, v.form
	return func() tea.Msg {
		res, err := form.Submit(ctx)
		return messages.SubmitCompleted{Result: res, Err: err}
	}
}

func (v *View) handleSubmitted(msg messages.SubmitCompleted) {
	v.busy = false
	if msg.Err != nil {
		var verr *domain.ValidationError
		if errors.As(msg.Err, &verr) {
			v.statusbar.Set(status.StateError, verr.Message)
			return
		}
		v.statusbar.Set(status.StateError, "Submission failed: "+msg.Err.Error())
		return
	}
	if msg.Result.Updated {
		v.statusbar.Set(status.StateSuccess,
			fmt.Sprintf("Updated submission for %s (row %d)", msg.Result.CaseID, msg.Result.RowID))
		return
	}
	v.statusbar.Set(status.StateSuccess,
		fmt.Sprintf("Submitted %s (row %d)", msg.Result.CaseID, msg.Result.RowID))
}

func (v *View) generate() tea.Cmd {
	if v.busy || v.caseView == nil {
		return nil
	}
	if v.report == nil {
		v.statusbar.Set(status.StateError, "Report scripts are not configured")
		return nil
	}
	if lookup := v.form.Lookup(); !lookup.Found || lookup.CaseID != v.caseView.Case.ID {
		v.statusbar.Set(status.StateError, "Submit the form before generating a report")
		return nil
	}
	v.busy = true
	v.statusbar.Set(status.StateReporting, "Starting report generation...")

	ctx, report, progress, id := v.ctx, v.report, v.progress, v.caseView.Case.ID
	return func() tea.Msg {
		res, err := report.Generate(ctx, id, progress)
		return messages.ReportCompleted{Result: res, Err: err}
	}
}

func (v *View) handleReport(msg messages.ReportCompleted) {
	v.busy = false
	if msg.Err != nil {
		v.statusbar.Set(status.StateError, msg.Err.Error())
		return
	}
	v.documentURL = msg.Result.DocumentURL
	text := "Report ready"
	if msg.Result.EmailSent {
		text += ", emailed to " + msg.Result.Recipient
	} else if msg.Result.EmailError != "" {
		text += ", email failed: " + msg.Result.EmailError
	}
	v.statusbar.Set(status.StateSuccess, text)
}

func (v *View) refresh() tea.Cmd {
	if v.busy {
		return nil
	}
	v.busy = true
	v.statusbar.Set(status.StateLoading, "Refreshing...")

	ctx, form := v.ctx, v.form
	return func() tea.Msg {
		err := form.Refresh(ctx)
		return messages.CasesLoaded{Cases: form.Cases(), Err: err}
	}
}

// Refreshed ends a refresh started from this view.
func (v *View) Refreshed(err error) {
	v.busy = false
	if err != nil {
		v.statusbar.Set(status.StateError, "Refresh failed: "+err.Error())
		return
	}
	v.statusbar.Set(status.StateSuccess, "Data refreshed")
}

func (v *View) clear() tea.Cmd {
	if v.busy {
		return nil
	}
	ctx, form := v.ctx, v.form
	return func() tea.Msg {
		if err := form.Clear(ctx); err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return messages.ViewChanged{View: messages.ViewCases}
	}
}

func (v *View) open(i int) tea.Cmd {
	if v.caseView == nil || v.actions == nil {
		return nil
	}
	slot := v.caseView.Viewers[i]
	if slot.Placeholder() {
		v.statusbar.Set(status.StateError, slot.Title+" has not been generated")
		return nil
	}
	ctx, actions := v.ctx, v.actions
	return func() tea.Msg {
		if err := actions.Open(ctx, slot); err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return nil
	}
}

func (v *View) handleFormEvent(ev domain.FormEvent) {
	if ev.Kind != domain.FormEventSaved {
		return
	}
	if ev.Err != nil {
		v.statusbar.SetSaved("autosave failed")
		return
	}
	v.statusbar.SetSaved("saved")
}

// View renders the form.
func (v *View) View() string {
	if v.caseView == nil {
		return v.styles.Muted.Render("No case selected")
	}

	state := v.form.State()
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("R3 Form: " + v.caseView.Case.Label()))
	b.WriteString("\n")
	if banner := v.bannerText(); banner != "" {
		b.WriteString(v.styles.Banner.Render(banner))
		b.WriteString("\n")
	}
	for _, vs := range v.caseView.Viewers {
		url := vs.URL
		if vs.Placeholder() {
			url = "Not yet generated"
		}
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s: %s", vs.Title, url)))
		b.WriteString("\n")
	}
	if v.documentURL != "" {
		b.WriteString(v.styles.Success.Render("Document: " + v.documentURL))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, sl := range v.slots {
		focused := i == v.focus
		switch sl.kind {
		case slotASC:
			b.WriteString(v.renderSelector("ASC status", state.Status.ASC, focused))
		case slotADHD:
			b.WriteString(v.renderSelector("ADHD status", state.Status.ADHD, focused))
		case slotText:
			b.WriteString(v.renderText(sl.field, focused))
		case slotReferrals:
			b.WriteString(v.renderReferrals(state.Referrals, focused))
		case slotRemarks:
			b.WriteString(v.styles.Label.Render("Remarks"))
			b.WriteString("\n")
			b.WriteString(v.fieldStyle(focused).Render(v.remarks.View()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

func (v *View) bannerText() string {
	lookup := v.form.Lookup()
	if !lookup.Found || lookup.CaseID != v.caseView.Case.ID {
		return ""
	}
	text := fmt.Sprintf("A submission for %s already exists (row %d)", lookup.CaseID, lookup.RowID)
	if v.existing != nil && v.existing.RowID == lookup.RowID && v.existing.Timestamp != "" {
		text += ", last submitted " + v.existing.Timestamp
	}
	return text + ". Submitting will update it."
}

func (v *View) renderSelector(label, value string, focused bool) string {
	shown := value
	if shown == "" {
		shown = "Select..."
	}
	line := v.styles.Label.Render(label+": ") + "< " + shown + " >"
	if focused {
		return v.styles.Selected.Render("> ") + line
	}
	return "  " + line
}

func (v *View) renderText(i int, focused bool) string {
	title := v.styles.Label.Render(v.specs[i].Title)
	if focused {
		return title + "\n" + v.fieldStyle(true).Render(v.areas[i].View())
	}
	first, _, _ := strings.Cut(v.areas[i].Value(), "\n")
	return "  " + title + " " + v.styles.Muted.Render(truncate(first, v.width-len(v.specs[i].Title)-6))
}

func (v *View) renderReferrals(r domain.Referrals, focused bool) string {
	lines := []string{v.styles.Label.Render("Professional referrals")}
	for i, option := range v.settings.ReferralOptions {
		box := "[ ]"
		if r.Has(option) {
			box = "[x]"
		}
		prefix := "  "
		if focused && i == v.cursor {
			prefix = "> "
		}
		lines = append(lines, prefix+box+" "+option)
	}
	return strings.Join(lines, "\n")
}

func (v *View) fieldStyle(focused bool) lipgloss.Style {
	if focused {
		return v.styles.FieldFocused
	}
	return v.styles.Field
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	inner := width - 6
	if inner < 20 {
		inner = 20
	}
	for i := range v.areas {
		v.areas[i].SetWidth(inner)
	}
	v.remarks.Width = inner
	v.statusbar.SetWidth(width)
}

// Busy reports whether a submit, report or refresh is in flight.
func (v *View) Busy() bool {
	return v.busy
}

// FocusedField returns the free-text field with focus, or "".
func (v *View) FocusedField() domain.FieldID {
	if cur := v.current(); cur.kind == slotText {
		return v.specs[cur.field].ID
	}
	return ""
}

// Status returns the status bar state and message.
func (v *View) Status() (status.State, string) {
	return v.statusbar.State(), v.statusbar.Message()
}

// CaseID returns the id of the shown case, or "".
func (v *View) CaseID() string {
	if v.caseView == nil {
		return ""
	}
	return v.caseView.Case.ID
}

func indexOf(options []string, value string) int {
	for i, o := range options {
		if o == value {
			return i
		}
	}
	return -1
}

func truncate(s string, maxLen int) string {
	if maxLen < 10 {
		maxLen = 10
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
