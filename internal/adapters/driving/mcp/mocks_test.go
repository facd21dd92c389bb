package mcp

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// mockFormService is a mock implementation of driving.FormService.
type mockFormService struct {
	cases     []domain.CaseRecord
	initErr   error
	submitErr error
	result    *domain.SubmitResult

	state    domain.FormState
	selected string
	inits    int
	clears   int
	statusOK []string
	referral []string
}

func newMockForm(cases ...domain.CaseRecord) *mockFormService {
	return &mockFormService{
		cases:    cases,
		state:    domain.FormState{Fields: map[domain.FieldID]string{}},
		statusOK: []string{"Yes", "No", "Pending"},
		referral: []string{"Speech Therapy", "Occupational Therapy"},
	}
}

func (m *mockFormService) Init(_ context.Context) error {
	m.inits++
	return m.initErr
}

func (m *mockFormService) Refresh(_ context.Context) error { return nil }

func (m *mockFormService) Cases() []domain.CaseRecord { return m.cases }

func (m *mockFormService) SelectCase(_ context.Context, caseID string) (*domain.CaseView, error) {
	c, ok := domain.FindCase(m.cases, caseID)
	if !ok {
		return nil, fmt.Errorf("%w: case %q", domain.ErrNotFound, caseID)
	}
	m.selected = caseID
	m.state.CaseID = caseID
	return &domain.CaseView{Case: c, Viewers: c.ReportURLs().Viewers()}, nil
}

func (m *mockFormService) SetValue(field domain.FieldID, text string) error {
	m.state.Fields[field] = text
	return nil
}

func (m *mockFormService) Value(field domain.FieldID) string { return m.state.Fields[field] }

func (m *mockFormService) SetStatus(status domain.StatusFields) error {
	for _, v := range []string{status.ASC, status.ADHD} {
		if v != "" && !containsString(m.statusOK, v) {
			return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, v)
		}
	}
	m.state.Status = status
	return nil
}

func (m *mockFormService) ToggleReferral(option string, checked bool) error {
	if !containsString(m.referral, option) {
		return fmt.Errorf("%w: unknown referral %q", domain.ErrInvalidInput, option)
	}
	if checked {
		m.state.Referrals.Checked = append(m.state.Referrals.Checked, option)
	}
	return nil
}

func (m *mockFormService) SetRemarks(remarks string) error {
	m.state.Referrals.Remarks = remarks
	return nil
}

func (m *mockFormService) State() domain.FormState { return m.state.Clone() }

func (m *mockFormService) Lookup() domain.Lookup { return domain.Lookup{CaseID: m.selected} }

func (m *mockFormService) Submit(_ context.Context) (*domain.SubmitResult, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.SubmitResult{RowID: 1, CaseID: m.selected}, nil
}

func (m *mockFormService) Clear(_ context.Context) error {
	m.clears++
	m.selected = ""
	m.state = domain.FormState{Fields: map[domain.FieldID]string{}}
	return nil
}

func (m *mockFormService) Flush(_ context.Context) error { return nil }

func (m *mockFormService) Subscribe(_ domain.FormListener) func() { return func() {} }

func (m *mockFormService) Close() error { return nil }

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// mockSubmissionService is a mock implementation of driving.SubmissionService.
type mockSubmissionService struct {
	records map[string]*domain.SubmissionRecord
	err     error
}

func (m *mockSubmissionService) FindExisting(_ context.Context, caseID string) (*domain.SubmissionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records[caseID], nil
}

// mockCacheService is a mock implementation of driving.CacheService.
type mockCacheService struct {
	statuses []driving.CacheStatus
}

func (m *mockCacheService) Status(_ context.Context) []driving.CacheStatus { return m.statuses }

func (m *mockCacheService) Clear(_ context.Context) {}

// mockReportService is a mock implementation of driving.ReportService.
type mockReportService struct {
	result *domain.ReportResult
	err    error
	cases  []string
}

func (m *mockReportService) Generate(
	_ context.Context,
	caseID string,
	_ domain.ReportProgress,
) (*domain.ReportResult, error) {
	m.cases = append(m.cases, caseID)
	return m.result, m.err
}

func (m *mockReportService) Check(_ context.Context) map[domain.ReportStage]error { return nil }

var (
	_ driving.FormService       = (*mockFormService)(nil)
	_ driving.SubmissionService = (*mockSubmissionService)(nil)
	_ driving.CacheService      = (*mockCacheService)(nil)
	_ driving.ReportService     = (*mockReportService)(nil)
)

func testCases() []domain.CaseRecord {
	return []domain.CaseRecord{
		{ID: "C001", Name: "Alice", ReportURLA: "https://docs.example.com/a1"},
		{ID: "C002", Name: "Bob"},
		{ID: "D003", Name: "Carol"},
	}
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	s, err := NewServer(ports)
	require.NoError(t, err)
	return s
}
