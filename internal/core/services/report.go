package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
	"github.com/custodia-labs/r3form/internal/logger"
)

// Ensure ReportService implements the interface.
var _ driving.ReportService = (*ReportService)(nil)

// ReportService runs the document generation pipeline for a submitted case.
type ReportService struct {
	remote    driven.RemoteDataSource
	generator driven.ReportGenerator
	attempts  int
	interval  time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewReportService creates a report service.
func NewReportService(
	remote driven.RemoteDataSource,
	generator driven.ReportGenerator,
	settings domain.ReportSettings,
) *ReportService {
	attempts := settings.VerifyAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &ReportService{
		remote:    remote,
		generator: generator,
		attempts:  attempts,
		interval:  settings.VerifyInterval,
		sleep:     sleepContext,
	}
}

// Generate waits for the submission to be visible remotely, then runs every
// stage in order. The final stage carries the document URL and email status.
func (s *ReportService) Generate(
	ctx context.Context,
	caseID string,
	progress domain.ReportProgress,
) (*domain.ReportResult, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("%w: report scripts are not configured", domain.ErrReport)
	}
	if progress == nil {
		progress = func(string, string) {}
	}

	logger.Section("Report")
	progress("waiting", "Verifying data submission...")
	if err := s.verify(ctx, caseID, progress); err != nil {
		return nil, err
	}

	var last *domain.StageResult
	for _, stage := range domain.AllReportStages() {
		progress(stage.String(), stage.Description()+"...")
		res, err := s.generator.RunStage(ctx, stage, caseID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s stage: %w", domain.ErrReport, stage, err)
		}
		if res.Failed() {
			return nil, fmt.Errorf("%w: %s stage: %s", domain.ErrReport, stage, res.FailureMessage())
		}
		logger.Debug("report stage %s: %s", stage, res.Message)
		last = res
	}

	if last == nil || last.Progress == nil || last.Progress.Details == nil {
		return nil, fmt.Errorf("%w: invalid response format from report generation", domain.ErrReport)
	}

	details := last.Progress.Details
	result := &domain.ReportResult{CaseID: caseID, DocumentURL: details.DocumentURL}
	if details.EmailStatus != nil {
		result.EmailSent = details.EmailStatus.Sent
		result.Recipient = details.EmailStatus.RecipientEmail
		result.EmailError = details.EmailStatus.Error
	}

	if result.EmailSent {
		progress("email", "Email sent to "+result.Recipient)
	} else {
		progress("email", "Email sending failed: "+result.EmailError)
	}
	return result, nil
}

// Check pings every stage endpoint in test mode.
func (s *ReportService) Check(ctx context.Context) map[domain.ReportStage]error {
	out := make(map[domain.ReportStage]error, len(domain.AllReportStages()))
	for _, stage := range domain.AllReportStages() {
		if s.generator == nil {
			out[stage] = fmt.Errorf("%w: report scripts are not configured", domain.ErrReport)
			continue
		}
		res, err := s.generator.Ping(ctx, stage)
		switch {
		case err != nil:
			out[stage] = err
		case res.Failed():
			out[stage] = fmt.Errorf("%w: %s", domain.ErrReport, res.FailureMessage())
		default:
			out[stage] = nil
		}
	}
	return out
}

// verify polls the submission log until the case appears.
// Fetch failures count as attempts.
func (s *ReportService) verify(ctx context.Context, caseID string, progress domain.ReportProgress) error {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		subs, err := s.remote.FetchSubmissions(ctx)
		if err != nil {
			logger.Warn("verification attempt %d failed: %v", attempt, err)
		} else if domain.SelectExisting(subs, caseID) != nil {
			logger.Debug("submission for %s verified on attempt %d", caseID, attempt)
			return nil
		}

		if attempt < s.attempts {
			progress("waiting", fmt.Sprintf("Waiting for data sync (attempt %d/%d)...", attempt, s.attempts))
			if err := s.sleep(ctx, s.interval); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: could not verify the submission for %s after %d attempts",
		domain.ErrReport, caseID, s.attempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
