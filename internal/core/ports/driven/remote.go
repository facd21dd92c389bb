package driven

import (
	"context"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

// RemoteDataSource reads and writes the spreadsheet-backed collections.
//
// Fetch errors are *domain.NetworkError or *domain.FormatError.
// Create and update errors are *domain.SubmitError.
type RemoteDataSource interface {
	// FetchCaseList returns every case row. Rows with an empty id or a
	// header label id are dropped.
	FetchCaseList(ctx context.Context) ([]domain.CaseRecord, error)

	// FetchSubmissions returns every submission row. A response without the
	// collection field yields an empty slice.
	FetchSubmissions(ctx context.Context) ([]domain.SubmissionRecord, error)

	// CreateSubmission appends a row and returns its row id.
	CreateSubmission(ctx context.Context, rec domain.SubmissionRecord) (int, error)

	// UpdateSubmission replaces the row with the given id.
	UpdateSubmission(ctx context.Context, rowID int, rec domain.SubmissionRecord) error
}

// ReportGenerator runs one stage of the document generation pipeline.
type ReportGenerator interface {
	RunStage(ctx context.Context, stage domain.ReportStage, caseID string) (*domain.StageResult, error)

	// Ping calls a stage endpoint in test mode. No document is produced.
	Ping(ctx context.Context, stage domain.ReportStage) (*domain.StageResult, error)
}

// Notifier is told when the selected case gains or loses a prior submission.
type Notifier interface {
	ShowExistingSubmission(rec domain.SubmissionRecord)
	ClearExistingSubmission()
}
