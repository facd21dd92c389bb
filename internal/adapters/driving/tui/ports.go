// Package tui provides an interactive terminal user interface for the R3 form.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// NotifierRegistry accepts notifiers for prior-submission findings.
type NotifierRegistry interface {
	AddNotifier(n driven.Notifier)
}

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Form drives case selection, editing and submission.
	Form driving.FormService

	// Report runs document generation. Optional.
	Report driving.ReportService

	// Actions opens reference reports. Optional.
	Actions driving.ViewerActionService

	// Settings supplies the form options and reloads config. Optional.
	Settings driving.SettingsService

	// Notifiers receives the TUI's prior-submission notifier. Optional.
	Notifiers NotifierRegistry
}

// NewPorts creates a new Ports aggregate with the required services.
func NewPorts(form driving.FormService, settings driving.SettingsService) *Ports {
	return &Ports{
		Form:     form,
		Settings: settings,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Form == nil {
		return ErrMissingFormService
	}
	return nil
}
