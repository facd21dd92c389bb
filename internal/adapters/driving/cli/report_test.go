package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

func TestReportCmd(t *testing.T) {
	report := &MockReportService{Result: &domain.ReportResult{
		CaseID:      "C001",
		DocumentURL: "https://docs.example.com/d/1",
		EmailSent:   true,
		Recipient:   "clinic@example.com",
	}}
	useServices(t, &Services{Report: report})

	out, err := execute(t, nil, "report", "C001")

	require.NoError(t, err)
	assert.Equal(t, []string{"C001"}, report.Cases)
	assert.Contains(t, out, "Waiting for submission...")
	assert.Contains(t, out, "Document: https://docs.example.com/d/1")
	assert.Contains(t, out, "Emailed to clinic@example.com")
}

func TestReportCmd_UsesSelectedCase(t *testing.T) {
	form := newMockForm(testCases()...)
	form.Form.CaseID = "C002"
	report := &MockReportService{Result: &domain.ReportResult{
		CaseID:      "C002",
		DocumentURL: "https://docs.example.com/d/2",
		EmailError:  "quota exceeded",
	}}
	useServices(t, &Services{Form: form, Report: report})

	out, err := execute(t, nil, "report")

	require.NoError(t, err)
	assert.Equal(t, []string{"C002"}, report.Cases)
	assert.Contains(t, out, "Email not sent: quota exceeded")
}

func TestReportCmd_NoCaseSelected(t *testing.T) {
	useServices(t, &Services{Form: newMockForm(), Report: &MockReportService{}})

	_, err := execute(t, nil, "report")

	assert.EqualError(t, err, "no case selected, pass a case id")
}

func TestReportCmd_Failure(t *testing.T) {
	report := &MockReportService{Err: errors.New("analysis script failed")}
	useServices(t, &Services{Report: report})

	_, err := execute(t, nil, "report", "C001")

	assert.EqualError(t, err, "generating report: analysis script failed")
}

func TestReportCmd_CopyAndOpen(t *testing.T) {
	report := &MockReportService{Result: &domain.ReportResult{
		CaseID:      "C001",
		DocumentURL: "https://docs.example.com/d/1",
		EmailSent:   true,
	}}
	actions := &MockActionService{}
	useServices(t, &Services{Report: report, Actions: actions})

	out, err := execute(t, nil, "report", "C001", "--copy", "--open")

	require.NoError(t, err)
	assert.Contains(t, out, "URL copied to clipboard.")
	assert.Equal(t, []string{"https://docs.example.com/d/1"}, actions.Copied)
	assert.Equal(t, []string{"https://docs.example.com/d/1"}, actions.Opened)
}

func TestReportCheck(t *testing.T) {
	t.Run("all ok", func(t *testing.T) {
		report := &MockReportService{Checks: map[domain.ReportStage]error{
			domain.ReportStageReport:   nil,
			domain.ReportStageTemplate: nil,
			domain.ReportStageAnalysis: nil,
		}}
		useServices(t, &Services{Report: report})

		out, err := execute(t, nil, "report", "check")

		require.NoError(t, err)
		assert.Regexp(t, `(?s)template\s+OK.*analysis\s+OK.*report\s+OK`, out)
	})

	t.Run("one failed", func(t *testing.T) {
		report := &MockReportService{Checks: map[domain.ReportStage]error{
			domain.ReportStageTemplate: nil,
			domain.ReportStageAnalysis: errors.New("404"),
			domain.ReportStageReport:   nil,
		}}
		useServices(t, &Services{Report: report})

		out, err := execute(t, nil, "report", "check")

		assert.EqualError(t, err, "1 of 3 report stages failed")
		assert.Contains(t, out, "FAILED: 404")
	})
}

func TestReport_NotConfigured(t *testing.T) {
	useServices(t, nil)

	_, err := execute(t, nil, "report", "C001")

	assert.EqualError(t, err, "report service not configured")
}
