// Package domain defines the core business entities for r3form.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - CaseRecord: A clinical assessment subject from the case list sheet
//   - SubmissionRecord: One R3 form row in the submission log sheet
//   - FormState: The in-progress form a clinician is editing
//   - CacheEntry: A timestamped JSON snapshot held in local storage
//   - WireSchema: The mapping from logical fields to spreadsheet columns
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
