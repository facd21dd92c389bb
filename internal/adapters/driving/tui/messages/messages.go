// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/r3form/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewCases is the case picker.
	ViewCases ViewType = iota
	// ViewForm is the assessment form for the selected case.
	ViewForm
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewCases:
		return "cases"
	case ViewForm:
		return "form"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// CasesLoaded is sent once the form controller has loaded the case list.
type CasesLoaded struct {
	Cases []domain.CaseRecord
	Err   error
}

// CaseSelected carries the result of selecting a case.
type CaseSelected struct {
	View *domain.CaseView
	Err  error
}

// ExistingSubmission is sent when the selected case gains or loses a
// prior submission. Record is nil when the warning should be cleared.
type ExistingSubmission struct {
	Record *domain.SubmissionRecord
}

// FormChanged wraps an event published by the form controller.
type FormChanged struct {
	Event domain.FormEvent
}

// SubmitCompleted carries the outcome of a submit.
type SubmitCompleted struct {
	Result *domain.SubmitResult
	Err    error
}

// ReportProgress reports a document generation step.
type ReportProgress struct {
	Stage   string
	Message string
}

// ReportCompleted carries the outcome of document generation.
type ReportCompleted struct {
	Result *domain.ReportResult
	Err    error
}

// ConfigChanged is sent when config.toml changes on disk.
type ConfigChanged struct{}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
