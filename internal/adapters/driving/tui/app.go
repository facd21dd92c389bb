package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/views/cases"
	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/views/form"
	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/logger"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	// casesView is the case picker.
	casesView *cases.View

	// formView edits the selected case.
	formView *form.View

	// notifier forwards tracker findings into the program.
	notifier *notifier

	// dispose removes the form event subscription.
	dispose func()

	// currentView tracks which view is active; previousView is restored
	// when help closes.
	currentView  messages.ViewType
	previousView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	settings := domain.DefaultAppSettings().Form
	if ports.Settings != nil {
		if s, err := ports.Settings.Get(); err == nil {
			settings = s.Form
		}
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	n := &notifier{}
	if ports.Notifiers != nil {
		ports.Notifiers.AddNotifier(n)
	}

	return &App{
		ports:     ports,
		ctx:       context.Background(),
		styles:    s,
		keymap:    km,
		casesView: cases.NewView(s, km, ports.Form),
		formView: form.NewView(s, km, form.Deps{
			Form:     ports.Form,
			Actions:  ports.Actions,
			Report:   ports.Report,
			Settings: settings,
		}),
		notifier:    n,
		currentView: messages.ViewCases,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.casesView.WithContext(ctx)
	a.formView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
// It loads the case list when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("r3form - R3 Clinical Form"),
		a.casesView.Init(),
		a.loadCases(),
	)
}

func (a *App) loadCases() tea.Cmd {
	ctx, f := a.ctx, a.ports.Form
	return func() tea.Msg {
		err := f.Init(ctx)
		return messages.CasesLoaded{Cases: f.Cases(), Err: err}
	}
}

func (a *App) refreshCases() tea.Cmd {
	ctx, f := a.ctx, a.ports.Form
	return func() tea.Msg {
		err := f.Refresh(ctx)
		return messages.CasesLoaded{Cases: f.Cases(), Err: err}
	}
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.CasesLoaded:
		if msg.Err != nil {
			a.err = msg.Err
		}
		a.casesView, cmd = a.casesView.Update(msg)
		if a.currentView == messages.ViewForm {
			a.formView.Refreshed(msg.Err)
		}
		return a, cmd

	case messages.CaseSelected:
		a.casesView, cmd = a.casesView.Update(msg)
		if msg.Err != nil || msg.View == nil {
			a.err = msg.Err
			return a, cmd
		}
		a.formView.Load(msg.View)
		a.currentView = messages.ViewForm
		return a, tea.Batch(cmd, a.formView.Init())

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.ExistingSubmission, messages.SubmitCompleted,
		messages.ReportProgress, messages.ReportCompleted, messages.FormChanged:
		a.formView, cmd = a.formView.Update(msg)
		return a, cmd

	case messages.ConfigChanged:
		a.reloadSettings()
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.Help):
		if a.currentView == messages.ViewHelp {
			a.currentView = a.previousView
			return a, nil
		}
		a.previousView = a.currentView
		a.currentView = messages.ViewHelp
		return a, nil
	}

	switch a.currentView {
	case messages.ViewHelp:
		if keymap.Matches(k, a.keymap.Back) {
			a.currentView = a.previousView
		}
		return a, nil

	case messages.ViewCases:
		if keymap.Matches(k, a.keymap.Refresh) && !a.casesView.Loading() {
			a.casesView.SetLoading("Refreshing...")
			return a, a.refreshCases()
		}
	case messages.ViewForm:
	}

	return a, a.forward(msg)
}

// forward passes a message to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewCases:
		a.casesView, cmd = a.casesView.Update(msg)
	case messages.ViewForm:
		a.formView, cmd = a.formView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

func (a *App) reloadSettings() {
	if a.ports.Settings == nil {
		return
	}
	s, err := a.ports.Settings.Get()
	if err != nil {
		logger.Warn("reload settings: %v", err)
		a.err = err
		return
	}
	logger.Info("configuration reloaded")
	a.formView.SetSettings(s.Form)
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewForm:
		return a.formView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewCases:
		return a.casesView.View()
	default:
		return a.casesView.View()
	}
}

// viewHelp renders the keybinding reference.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")

	sections := []string{"Navigation", "Editing", "Actions", "Other"}
	for i, group := range a.keymap.FullHelp() {
		if i < len(sections) {
			b.WriteString(a.styles.Subtitle.Render(sections[i]))
			b.WriteString("\n")
		}
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-12s %s\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	a.attach(p.Send)
	defer a.detach()
	_, err := p.Run()
	return err
}

// attach routes background events into the program.
func (a *App) attach(send func(tea.Msg)) {
	a.notifier.attach(send)
	a.dispose = a.ports.Form.Subscribe(func(ev domain.FormEvent) {
		if ev.Kind == domain.FormEventSaved {
			a.notifier.post(messages.FormChanged{Event: ev})
		}
	})
	a.formView.SetProgress(func(stage, message string) {
		send(messages.ReportProgress{Stage: stage, Message: message})
	})
}

func (a *App) detach() {
	a.notifier.attach(nil)
	a.formView.SetProgress(nil)
	if a.dispose != nil {
		a.dispose()
		a.dispose = nil
	}
}

// Notify delivers a message to the running program. It is a no-op when
// the program is not running.
func (a *App) Notify(msg tea.Msg) {
	a.notifier.post(msg)
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.casesView.SetDimensions(width, height)
	a.formView.SetDimensions(width, height)
}
