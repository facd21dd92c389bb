package driving

import (
	"context"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

// FormService drives the R3 form: case selection, editing and submission.
type FormService interface {
	// Init loads cases and submissions and restores the saved form.
	// On failure with no cached fallback the form stays unusable.
	Init(ctx context.Context) error

	// Refresh bypasses the cache, reloads remote data and re-checks the
	// selected case for a prior submission.
	Refresh(ctx context.Context) error

	// Cases returns the loaded case list.
	Cases() []domain.CaseRecord

	// SelectCase makes a case current and looks up its prior submission.
	SelectCase(ctx context.Context, caseID string) (*domain.CaseView, error)

	// SetValue updates a free-text field, truncated to its limit.
	SetValue(field domain.FieldID, text string) error

	// Value returns a free-text field.
	Value(field domain.FieldID) string

	// SetStatus updates the ASC and ADHD selectors.
	SetStatus(status domain.StatusFields) error

	// ToggleReferral checks or unchecks a referral option.
	ToggleReferral(option string, checked bool) error

	// SetRemarks updates the referrals remark.
	SetRemarks(remarks string) error

	// State returns a copy of the form.
	State() domain.FormState

	// Lookup returns the prior submission finding for the selected case.
	Lookup() domain.Lookup

	// Submit creates or updates the submission for the selected case.
	Submit(ctx context.Context) (*domain.SubmitResult, error)

	// Clear resets the form and removes the saved copy. Idempotent.
	Clear(ctx context.Context) error

	// Flush persists any pending edit immediately.
	Flush(ctx context.Context) error

	// Subscribe registers a listener and returns its dispose function.
	Subscribe(listener domain.FormListener) func()

	// Close stops the autosave timer after flushing.
	Close() error
}

// SubmissionService finds prior submissions for a case.
type SubmissionService interface {
	// FindExisting returns the canonical submission for a case, or nil.
	FindExisting(ctx context.Context, caseID string) (*domain.SubmissionRecord, error)
}

// CacheStatus describes one cache key.
type CacheStatus struct {
	Key      domain.CacheKey
	Present  bool
	Valid    bool
	Rows     int
	StoredAt string
}

// CacheService inspects and clears the local cache.
type CacheService interface {
	// Status reports every key in the cache registry.
	Status(ctx context.Context) []CacheStatus

	// Clear removes every key in the cache registry.
	Clear(ctx context.Context)
}

// ReportService runs the document generation pipeline.
type ReportService interface {
	// Generate waits for the submission to be visible remotely, then runs
	// every stage in order.
	Generate(ctx context.Context, caseID string, progress domain.ReportProgress) (*domain.ReportResult, error)

	// Check pings every stage endpoint. A nil entry means the stage answered.
	Check(ctx context.Context) map[domain.ReportStage]error
}
