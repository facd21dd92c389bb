// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/r3form/internal/core/domain"
)

// CaseList displays cases in a navigable, filterable list.
type CaseList struct {
	all      []domain.CaseRecord
	visible  []domain.CaseRecord
	filter   string
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewCaseList creates a new case list component.
func NewCaseList(s *styles.Styles) *CaseList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &CaseList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Update handles list navigation keys.
func (l *CaseList) Update(msg tea.Msg) (*CaseList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			l.MoveUp()
		case tea.KeyDown:
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the visible window of the list.
func (l *CaseList) View() string {
	if len(l.visible) == 0 {
		if len(l.all) == 0 {
			return l.styles.Muted.Render("No cases loaded")
		}
		return l.styles.Muted.Render(fmt.Sprintf("No cases match %q", l.filter))
	}

	lines := make([]string, 0, len(l.visible)+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Cases (%d)", len(l.visible))), "")

	rows := l.height - 2
	if rows < 1 {
		rows = 1
	}
	start := 0
	if l.selected >= rows {
		start = l.selected - rows + 1
	}
	end := start + rows
	if end > len(l.visible) {
		end = len(l.visible)
	}

	for i := start; i < end; i++ {
		label := truncate(l.visible[i].Label(), l.width-4)
		if i == l.selected {
			lines = append(lines, l.styles.Selected.Render("> "+label))
			continue
		}
		lines = append(lines, l.styles.Normal.Render("  "+label))
	}
	return strings.Join(lines, "\n")
}

// SetCases replaces the list contents and reapplies the filter.
func (l *CaseList) SetCases(cases []domain.CaseRecord) {
	l.all = cases
	l.apply()
}

// SetFilter narrows the list to cases whose label contains text,
// ignoring case.
func (l *CaseList) SetFilter(text string) {
	if text == l.filter {
		return
	}
	l.filter = text
	l.apply()
}

func (l *CaseList) apply() {
	needle := strings.ToLower(strings.TrimSpace(l.filter))
	l.visible = l.visible[:0]
	for _, c := range l.all {
		if needle == "" || strings.Contains(strings.ToLower(c.Label()), needle) {
			l.visible = append(l.visible, c)
		}
	}
	l.selected = 0
}

// MoveUp moves the selection up.
func (l *CaseList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves the selection down.
func (l *CaseList) MoveDown() {
	if l.selected < len(l.visible)-1 {
		l.selected++
	}
}

// SelectedCase returns the highlighted case, or nil.
func (l *CaseList) SelectedCase() *domain.CaseRecord {
	if l.selected < 0 || l.selected >= len(l.visible) {
		return nil
	}
	c := l.visible[l.selected]
	return &c
}

// Count returns the number of visible cases.
func (l *CaseList) Count() int {
	return len(l.visible)
}

// Selected returns the index of the selected case.
func (l *CaseList) Selected() int {
	return l.selected
}

// SetDimensions sets the list size.
func (l *CaseList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
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
