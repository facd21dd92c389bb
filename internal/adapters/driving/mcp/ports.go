package mcp

import (
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Form loads cases and submits assessments.
	Form driving.FormService

	// Submissions finds prior submissions for a case.
	Submissions driving.SubmissionService

	// Cache reports cache state. Optional.
	Cache driving.CacheService

	// Report generates assessment documents. Optional.
	Report driving.ReportService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Form == nil {
		return ErrMissingFormService
	}
	if p.Submissions == nil {
		return ErrMissingSubmissionService
	}
	return nil
}
