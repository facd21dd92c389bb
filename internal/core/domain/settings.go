package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// RemoteBackend identifies the service fronting the spreadsheet.
type RemoteBackend string

// Available remote backends.
const (
	// RemoteBackendSheety talks to the Sheety REST proxy.
	RemoteBackendSheety RemoteBackend = "sheety"

	// RemoteBackendSheets talks to the Google Sheets API directly.
	RemoteBackendSheets RemoteBackend = "sheets"
)

// IsValid returns true if the backend is recognised.
func (b RemoteBackend) IsValid() bool {
	switch b {
	case RemoteBackendSheety, RemoteBackendSheets:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b RemoteBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b RemoteBackend) Description() string {
	switch b {
	case RemoteBackendSheety:
		return "Sheety (REST proxy)"
	case RemoteBackendSheets:
		return "Google Sheets API"
	default:
		return unknownDescription
	}
}

// AllRemoteBackends returns all available backends.
func AllRemoteBackends() []RemoteBackend {
	return []RemoteBackend{RemoteBackendSheety, RemoteBackendSheets}
}

// RemoteSettings holds remote data source configuration.
type RemoteSettings struct {
	// Backend selects the adapter.
	Backend RemoteBackend

	// BaseURL is the Sheety project URL, e.g.
	// https://api.sheety.co/<id>/<project>.
	BaseURL string

	// CaseListResource is the case list sheet endpoint and collection field.
	CaseListResource string

	// SubmissionsResource is the submission log endpoint and collection field.
	SubmissionsResource string

	// SubmissionSingular is the body wrapper for create and update.
	SubmissionSingular string

	// Token is an optional Sheety bearer token.
	Token string

	// RequestsPerSecond caps outbound requests. Zero disables limiting.
	RequestsPerSecond float64

	// Timeout bounds one HTTP request.
	Timeout time.Duration

	// SpreadsheetID is the sheet read by the Google Sheets backend.
	SpreadsheetID string

	// CaseListSheet and SubmissionsSheet are tab names for the Sheets backend.
	CaseListSheet    string
	SubmissionsSheet string

	// CredentialsFile is a service account key for the Sheets backend.
	CredentialsFile string
}

// CaseListURL returns the case list endpoint.
func (r RemoteSettings) CaseListURL() string {
	return r.BaseURL + "/" + r.CaseListResource
}

// SubmissionsURL returns the submission log endpoint.
func (r RemoteSettings) SubmissionsURL() string {
	return r.BaseURL + "/" + r.SubmissionsResource
}

// IsConfigured returns true if the selected backend has what it needs.
func (r RemoteSettings) IsConfigured() bool {
	switch r.Backend {
	case RemoteBackendSheety:
		return r.BaseURL != "" && r.CaseListResource != "" && r.SubmissionsResource != ""
	case RemoteBackendSheets:
		return r.SpreadsheetID != "" && r.CaseListSheet != "" && r.SubmissionsSheet != ""
	default:
		return false
	}
}

// CacheSettings holds local cache configuration.
type CacheSettings struct {
	// TTL is how long a snapshot is served without refetching.
	TTL time.Duration

	// MinCaseRows is the smallest case list accepted as valid.
	MinCaseRows int

	// KeyPrefix namespaces keys in the local store.
	KeyPrefix string
}

// FormSettings holds form editing configuration.
type FormSettings struct {
	// Debounce delays persistence after an edit.
	Debounce time.Duration

	// CharLimit caps each free-text field. Zero disables the cap.
	CharLimit int

	// ASCOptions and ADHDOptions are the status selector choices.
	ASCOptions  []string
	ADHDOptions []string

	// ReferralOptions are the referrals checklist choices.
	ReferralOptions []string
}

// FieldSpecs returns the form fields with the configured limit applied.
func (f FormSettings) FieldSpecs() []FieldSpec {
	specs := DefaultFieldSpecs()
	for i := range specs {
		specs[i].CharLimit = f.CharLimit
	}
	return specs
}

// ReportSettings holds document generation configuration.
type ReportSettings struct {
	// StageURLs maps each stage to its script endpoint.
	StageURLs map[ReportStage]string

	// VerifyAttempts is how often the submission log is polled.
	VerifyAttempts int

	// VerifyInterval is the wait between polls.
	VerifyInterval time.Duration
}

// IsConfigured returns true if every stage has an endpoint.
func (r ReportSettings) IsConfigured() bool {
	for _, s := range AllReportStages() {
		if r.StageURLs[s] == "" {
			return false
		}
	}
	return true
}

// AppSettings holds all application settings.
type AppSettings struct {
	Remote RemoteSettings
	Cache  CacheSettings
	Form   FormSettings
	Report ReportSettings
	Schema WireSchema
}

// Validate fails on settings the application cannot start with.
func (s AppSettings) Validate() error {
	if !s.Remote.Backend.IsValid() {
		return fmt.Errorf("%w: unknown remote backend %q", ErrInvalidInput, s.Remote.Backend)
	}
	if s.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive", ErrInvalidInput)
	}
	if s.Cache.MinCaseRows < 0 {
		return fmt.Errorf("%w: cache min_case_rows must not be negative", ErrInvalidInput)
	}
	if s.Form.CharLimit < 0 {
		return fmt.Errorf("%w: form char_limit must not be negative", ErrInvalidInput)
	}
	if s.Report.VerifyAttempts < 1 {
		return fmt.Errorf("%w: report verify_attempts must be at least 1", ErrInvalidInput)
	}
	return s.Schema.Validate()
}

// Default values.
const (
	DefaultCacheTTL          = time.Hour
	DefaultMinCaseRows       = 2
	DefaultCacheKeyPrefix    = "r3form."
	DefaultDebounce          = 500 * time.Millisecond
	DefaultVerifyAttempts    = 6
	DefaultVerifyInterval    = 5 * time.Second
	DefaultRequestsPerSecond = 2.0
	DefaultRequestTimeout    = 30 * time.Second
)

// DefaultASCOptions returns the ASC status choices.
func DefaultASCOptions() []string {
	return []string{"ASC confirmed", "ASC not confirmed", "ASC queried", "ASC not assessed"}
}

// DefaultADHDOptions returns the ADHD status choices.
func DefaultADHDOptions() []string {
	return []string{"ADHD confirmed", "ADHD not confirmed", "ADHD queried", "ADHD not assessed"}
}

// DefaultReferralOptions returns the referrals checklist choices.
func DefaultReferralOptions() []string {
	return []string{
		"Speech Pathology",
		"Occupational Therapy",
		"Psychology",
		"Paediatrician",
		"Psychiatry",
		"Physiotherapy",
		"Dietitian",
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// The remote endpoints and script URLs are deployment specific and left
// empty; users set them in config.toml.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Remote: RemoteSettings{
			Backend:             RemoteBackendSheety,
			CaseListResource:    "allUrl",
			SubmissionsResource: "r3Form",
			SubmissionSingular:  "r3Form",
			RequestsPerSecond:   DefaultRequestsPerSecond,
			Timeout:             DefaultRequestTimeout,
			CaseListSheet:       "All_URL",
			SubmissionsSheet:    "R3_Form",
		},
		Cache: CacheSettings{
			TTL:         DefaultCacheTTL,
			MinCaseRows: DefaultMinCaseRows,
			KeyPrefix:   DefaultCacheKeyPrefix,
		},
		Form: FormSettings{
			Debounce:        DefaultDebounce,
			CharLimit:       DefaultCharLimit,
			ASCOptions:      DefaultASCOptions(),
			ADHDOptions:     DefaultADHDOptions(),
			ReferralOptions: DefaultReferralOptions(),
		},
		Report: ReportSettings{
			StageURLs:      map[ReportStage]string{},
			VerifyAttempts: DefaultVerifyAttempts,
			VerifyInterval: DefaultVerifyInterval,
		},
		Schema: DefaultWireSchema(),
	}
}
