package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// ListCasesInput is the input schema for the list_cases tool.
type ListCasesInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"case-insensitive text matched against case id and name"`
}

// ListCasesOutput is the output schema for the list_cases tool.
type ListCasesOutput struct {
	Cases []CaseOutput `json:"cases"`
	Count int          `json:"count"`
}

// CaseOutput represents a single case.
type CaseOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	R1Report string `json:"r1_report,omitempty"`
	R2Report string `json:"r2_report,omitempty"`
}

// FindSubmissionInput is the input schema for the find_submission tool.
type FindSubmissionInput struct {
	CaseID string `json:"case_id" jsonschema:"the case id to look up"`
}

// FindSubmissionOutput is the output schema for the find_submission tool.
type FindSubmissionOutput struct {
	Found      bool              `json:"found"`
	Submission *SubmissionOutput `json:"submission,omitempty"`
}

// SubmissionOutput represents a stored submission row.
type SubmissionOutput struct {
	RowID      int               `json:"row_id"`
	CaseID     string            `json:"case_id"`
	Timestamp  string            `json:"timestamp,omitempty"`
	ASCStatus  string            `json:"asc_status,omitempty"`
	ADHDStatus string            `json:"adhd_status,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Referrals  []string          `json:"referrals,omitempty"`
	Remarks    string            `json:"remarks,omitempty"`
}

// SubmitAssessmentInput is the input schema for the submit_assessment tool.
type SubmitAssessmentInput struct {
	CaseID          string   `json:"case_id" jsonschema:"the case to submit for"`
	ASCStatus       string   `json:"asc_status" jsonschema:"ASC diagnostic status, one of the configured options"`
	ADHDStatus      string   `json:"adhd_status" jsonschema:"ADHD diagnostic status, one of the configured options"`
	Observations    string   `json:"observations" jsonschema:"key clinical observations"`
	Strengths       string   `json:"strengths" jsonschema:"strengths and abilities"`
	Priorities      string   `json:"priorities" jsonschema:"priority support areas"`
	Recommendations string   `json:"recommendations" jsonschema:"support recommendations"`
	Referrals       []string `json:"referrals,omitempty" jsonschema:"professional referrals to check"`
	Remarks         string   `json:"remarks,omitempty" jsonschema:"free-text remark for the referrals"`
}

// SubmitAssessmentOutput is the output schema for the submit_assessment tool.
type SubmitAssessmentOutput struct {
	RowID   int    `json:"row_id"`
	CaseID  string `json:"case_id"`
	Updated bool   `json:"updated"`
}

// GenerateReportInput is the input schema for the generate_report tool.
type GenerateReportInput struct {
	CaseID string `json:"case_id" jsonschema:"the case whose submission the report is built from"`
}

// GenerateReportOutput is the output schema for the generate_report tool.
type GenerateReportOutput struct {
	DocumentURL string `json:"document_url"`
	EmailSent   bool   `json:"email_sent"`
	Recipient   string `json:"recipient,omitempty"`
	EmailError  string `json:"email_error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_cases",
		Description: "List assessment cases, optionally filtered by id or name",
	}, s.handleListCases)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_submission",
		Description: "Find the existing R3 form submission for a case",
	}, s.handleFindSubmission)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "submit_assessment",
		Description: "Submit an R3 form for a case. Replaces the in-progress form and " +
			"updates the prior submission if the case already has one",
	}, s.handleSubmitAssessment)

	if s.ports.Report != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "generate_report",
			Description: "Generate the assessment document for a submitted case and email it",
		}, s.handleGenerateReport)
	}
}

// handleListCases handles the list_cases tool invocation.
func (s *Server) handleListCases(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListCasesInput,
) (*mcp.CallToolResult, ListCasesOutput, error) {
	s.formMu.Lock()
	defer s.formMu.Unlock()

	if err := s.loadForm(ctx); err != nil {
		return nil, ListCasesOutput{}, err
	}

	filter := strings.ToLower(strings.TrimSpace(input.Filter))
	output := ListCasesOutput{Cases: []CaseOutput{}}
	for _, c := range s.ports.Form.Cases() {
		if filter != "" && !strings.Contains(strings.ToLower(c.Label()), filter) {
			continue
		}
		output.Cases = append(output.Cases, caseOutput(c))
	}
	output.Count = len(output.Cases)

	return nil, output, nil
}

// handleFindSubmission handles the find_submission tool invocation.
func (s *Server) handleFindSubmission(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindSubmissionInput,
) (*mcp.CallToolResult, FindSubmissionOutput, error) {
	caseID := strings.TrimSpace(input.CaseID)
	if caseID == "" {
		return nil, FindSubmissionOutput{}, fmt.Errorf("%w: case_id is required", domain.ErrInvalidInput)
	}

	rec, err := s.ports.Submissions.FindExisting(ctx, caseID)
	if err != nil {
		return nil, FindSubmissionOutput{}, err
	}
	if rec == nil {
		return nil, FindSubmissionOutput{}, nil
	}

	return nil, FindSubmissionOutput{Found: true, Submission: submissionOutput(rec)}, nil
}

// handleSubmitAssessment handles the submit_assessment tool invocation.
func (s *Server) handleSubmitAssessment(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SubmitAssessmentInput,
) (*mcp.CallToolResult, SubmitAssessmentOutput, error) {
	caseID := strings.TrimSpace(input.CaseID)
	if caseID == "" {
		return nil, SubmitAssessmentOutput{}, fmt.Errorf("%w: case_id is required", domain.ErrInvalidInput)
	}

	s.formMu.Lock()
	defer s.formMu.Unlock()

	form := s.ports.Form
	if err := s.loadForm(ctx); err != nil {
		return nil, SubmitAssessmentOutput{}, err
	}
	if err := form.Clear(ctx); err != nil {
		return nil, SubmitAssessmentOutput{}, err
	}
	if _, err := form.SelectCase(ctx, caseID); err != nil {
		return nil, SubmitAssessmentOutput{}, err
	}

	if err := fillForm(form, input); err != nil {
		return nil, SubmitAssessmentOutput{}, err
	}

	res, err := form.Submit(ctx)
	if err != nil {
		return nil, SubmitAssessmentOutput{}, err
	}

	return nil, SubmitAssessmentOutput{
		RowID:   res.RowID,
		CaseID:  res.CaseID,
		Updated: res.Updated,
	}, nil
}

// fillForm copies the tool input into the form controller.
func fillForm(form driving.FormService, input SubmitAssessmentInput) error {
	if err := form.SetStatus(domain.StatusFields{ASC: input.ASCStatus, ADHD: input.ADHDStatus}); err != nil {
		return err
	}

	texts := map[domain.FieldID]string{
		domain.FieldClinicalObservations:   input.Observations,
		domain.FieldStrengthsAbilities:     input.Strengths,
		domain.FieldPrioritySupport:        input.Priorities,
		domain.FieldSupportRecommendations: input.Recommendations,
	}
	for _, id := range domain.AllFields() {
		if err := form.SetValue(id, texts[id]); err != nil {
			return err
		}
	}

	for _, option := range input.Referrals {
		if err := form.ToggleReferral(option, true); err != nil {
			return err
		}
	}
	return form.SetRemarks(input.Remarks)
}

// handleGenerateReport handles the generate_report tool invocation.
func (s *Server) handleGenerateReport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateReportInput,
) (*mcp.CallToolResult, GenerateReportOutput, error) {
	if s.ports.Report == nil {
		return nil, GenerateReportOutput{}, errors.New("report generation is not configured")
	}
	caseID := strings.TrimSpace(input.CaseID)
	if caseID == "" {
		return nil, GenerateReportOutput{}, fmt.Errorf("%w: case_id is required", domain.ErrInvalidInput)
	}

	res, err := s.ports.Report.Generate(ctx, caseID, nil)
	if err != nil {
		return nil, GenerateReportOutput{}, err
	}

	return nil, GenerateReportOutput{
		DocumentURL: res.DocumentURL,
		EmailSent:   res.EmailSent,
		Recipient:   res.Recipient,
		EmailError:  res.EmailError,
	}, nil
}

func caseOutput(c domain.CaseRecord) CaseOutput {
	return CaseOutput{
		ID:       c.ID,
		Name:     c.Name,
		R1Report: c.ReportURLA,
		R2Report: c.ReportURLB,
	}
}

func submissionOutput(rec *domain.SubmissionRecord) *SubmissionOutput {
	out := &SubmissionOutput{
		RowID:      rec.RowID,
		CaseID:     rec.CaseID,
		Timestamp:  rec.Timestamp,
		ASCStatus:  rec.Status.ASC,
		ADHDStatus: rec.Status.ADHD,
		Referrals:  rec.Referrals.Checked,
		Remarks:    rec.Referrals.Remarks,
	}
	if len(rec.FreeText) > 0 {
		out.Fields = make(map[string]string, len(rec.FreeText))
		for id, text := range rec.FreeText {
			out.Fields[id.String()] = text
		}
	}
	return out
}
