// Package mcp provides an MCP (Model Context Protocol) server adapter for r3form.
// It lets AI assistants look up cases and prior submissions and submit R3 forms.
package mcp

import "errors"

// ErrMissingFormService is returned when the form service is not provided.
var ErrMissingFormService = errors.New("mcp: form service is required")

// ErrMissingSubmissionService is returned when the submission service is not provided.
var ErrMissingSubmissionService = errors.New("mcp: submission service is required")
