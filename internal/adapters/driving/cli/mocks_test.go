package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// MockFormService implements driving.FormService for command tests.
type MockFormService struct {
	CasesList []domain.CaseRecord
	Form      domain.FormState
	Found     domain.Lookup
	Result    *domain.SubmitResult

	InitErr    error
	RefreshErr error
	SubmitErr  error

	Inits     int
	Refreshes int
	Submits   int
	Flushes   int
	Clears    int
}

func newMockForm(cases ...domain.CaseRecord) *MockFormService {
	return &MockFormService{
		CasesList: cases,
		Form:      domain.FormState{Fields: map[domain.FieldID]string{}},
	}
}

func (m *MockFormService) Init(_ context.Context) error {
	m.Inits++
	return m.InitErr
}

func (m *MockFormService) Refresh(_ context.Context) error {
	m.Refreshes++
	return m.RefreshErr
}

func (m *MockFormService) Cases() []domain.CaseRecord { return m.CasesList }

func (m *MockFormService) SelectCase(_ context.Context, caseID string) (*domain.CaseView, error) {
	c, ok := domain.FindCase(m.CasesList, caseID)
	if !ok {
		return nil, fmt.Errorf("%w: case %q", domain.ErrNotFound, caseID)
	}
	m.Form.CaseID = caseID
	view := &domain.CaseView{Case: c, Viewers: c.ReportURLs().Viewers()}
	if m.Found.Found && m.Found.CaseID == caseID {
		view.Existing = &domain.SubmissionRecord{RowID: m.Found.RowID, CaseID: caseID, Timestamp: "2024-05-01T10:00:00Z"}
	}
	return view, nil
}

func (m *MockFormService) SetValue(field domain.FieldID, text string) error {
	if !field.IsValid() {
		return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, field)
	}
	m.Form.Fields[field] = text
	return nil
}

func (m *MockFormService) Value(field domain.FieldID) string { return m.Form.Fields[field] }

func (m *MockFormService) SetStatus(status domain.StatusFields) error {
	m.Form.Status = status
	return nil
}

func (m *MockFormService) ToggleReferral(option string, checked bool) error {
	var next []string
	for _, o := range m.Form.Referrals.Checked {
		if o != option {
			next = append(next, o)
		}
	}
	if checked {
		next = append(next, option)
	}
	m.Form.Referrals.Checked = next
	return nil
}

func (m *MockFormService) SetRemarks(remarks string) error {
	m.Form.Referrals.Remarks = remarks
	return nil
}

func (m *MockFormService) State() domain.FormState { return m.Form.Clone() }

func (m *MockFormService) Lookup() domain.Lookup { return m.Found }

func (m *MockFormService) Submit(_ context.Context) (*domain.SubmitResult, error) {
	m.Submits++
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}
	return m.Result, nil
}

func (m *MockFormService) Clear(_ context.Context) error {
	m.Clears++
	m.Form = domain.FormState{Fields: map[domain.FieldID]string{}}
	return nil
}

func (m *MockFormService) Flush(_ context.Context) error {
	m.Flushes++
	return nil
}

func (m *MockFormService) Subscribe(_ domain.FormListener) func() { return func() {} }

func (m *MockFormService) Close() error { return nil }

// MockSettingsService implements driving.SettingsService.
type MockSettingsService struct {
	Settings    domain.AppSettings
	ValidateErr error
	Sets        map[string]any
}

func newMockSettings() *MockSettingsService {
	return &MockSettingsService{Settings: domain.DefaultAppSettings(), Sets: map[string]any{}}
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.Settings
	return &s, nil
}

func (m *MockSettingsService) Set(key string, value any) error {
	m.Sets[key] = value
	return nil
}

func (m *MockSettingsService) Validate() error { return m.ValidateErr }

func (m *MockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *MockSettingsService) ConfigPath() string { return "/tmp/r3form/config.toml" }

// MockCacheService implements driving.CacheService.
type MockCacheService struct {
	Statuses []driving.CacheStatus
	Cleared  int
}

func (m *MockCacheService) Status(_ context.Context) []driving.CacheStatus { return m.Statuses }

func (m *MockCacheService) Clear(_ context.Context) { m.Cleared++ }

// MockReportService implements driving.ReportService.
type MockReportService struct {
	Result *domain.ReportResult
	Err    error
	Checks map[domain.ReportStage]error
	Cases  []string
}

func (m *MockReportService) Generate(
	_ context.Context,
	caseID string,
	progress domain.ReportProgress,
) (*domain.ReportResult, error) {
	m.Cases = append(m.Cases, caseID)
	if progress != nil {
		progress("verify", "Waiting for submission...")
	}
	return m.Result, m.Err
}

func (m *MockReportService) Check(_ context.Context) map[domain.ReportStage]error { return m.Checks }

// MockActionService implements driving.ViewerActionService.
type MockActionService struct {
	Opened []string
	Copied []string
}

func (m *MockActionService) Open(_ context.Context, slot domain.ViewerSlot) error {
	m.Opened = append(m.Opened, slot.URL)
	return nil
}

func (m *MockActionService) CopyToClipboard(_ context.Context, text string) error {
	m.Copied = append(m.Copied, text)
	return nil
}

var (
	_ driving.FormService         = (*MockFormService)(nil)
	_ driving.SettingsService     = (*MockSettingsService)(nil)
	_ driving.CacheService        = (*MockCacheService)(nil)
	_ driving.ReportService       = (*MockReportService)(nil)
	_ driving.ViewerActionService = (*MockActionService)(nil)
)

func testCases() []domain.CaseRecord {
	return []domain.CaseRecord{
		{ID: "C001", Name: "Alice", ReportURLA: "https://docs.example.com/a1"},
		{ID: "C002", Name: "Bob"},
		{ID: "D003", Name: "Carol"},
	}
}

// useServices installs services for one test and restores an empty set after.
func useServices(t *testing.T, s *Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() {
		SetServices(nil)
		resetFlags(t)
	})
}

// resetFlags clears flag values that persist between executions of rootCmd.
func resetFlags(t *testing.T) {
	t.Helper()
	for _, f := range []struct {
		cmd  *cobra.Command
		name string
		val  string
	}{
		{casesCmd, "refresh", "false"},
		{submitCmd, "yes", "false"},
		{submitCmd, "clear", "false"},
		{formReferCmd, "remove", "false"},
		{reportCmd, "copy", "false"},
		{reportCmd, "open", "false"},
		{mcpServeCmd, "port", "0"},
	} {
		if err := f.cmd.Flags().Set(f.name, f.val); err != nil {
			t.Fatalf("reset %s flag: %v", f.name, err)
		}
	}
}

// execute runs rootCmd with args and returns combined output.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
