package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRemoteBackend      = "remote.backend"
	keyRemoteBaseURL      = "remote.base_url"
	keyRemoteCaseList     = "remote.case_list_resource"
	keyRemoteSubmissions  = "remote.submissions_resource"
	keyRemoteSingular     = "remote.submission_singular"
	keyRemoteToken        = "remote.token"
	keyRemoteRPS          = "remote.requests_per_second"
	keyRemoteTimeout      = "remote.timeout"
	keyRemoteSpreadsheet  = "remote.spreadsheet_id"
	keyRemoteCaseSheet    = "remote.case_list_sheet"
	keyRemoteSubSheet     = "remote.submissions_sheet"
	keyRemoteCredentials  = "remote.credentials_file"
	keyCacheTTL           = "cache.ttl"
	keyCacheMinRows       = "cache.min_case_rows"
	keyCacheKeyPrefix     = "cache.key_prefix"
	keyFormDebounce       = "form.debounce"
	keyFormCharLimit      = "form.char_limit"
	keyFormASCOptions     = "form.asc_options"
	keyFormADHDOptions    = "form.adhd_options"
	keyFormReferrals      = "form.referral_options"
	keyReportTemplateURL  = "report.template_url"
	keyReportAnalysisURL  = "report.analysis_url"
	keyReportReportURL    = "report.report_url"
	keyReportVerifyTries  = "report.verify_attempts"
	keyReportVerifyPeriod = "report.verify_interval"
	keySchemaPrefix       = "schema."
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Remote: domain.RemoteSettings{
			Backend:             s.getBackend(defaults.Remote.Backend),
			BaseURL:             strings.TrimRight(s.configStore.GetString(keyRemoteBaseURL), "/"),
			CaseListResource:    s.getString(keyRemoteCaseList, defaults.Remote.CaseListResource),
			SubmissionsResource: s.getString(keyRemoteSubmissions, defaults.Remote.SubmissionsResource),
			SubmissionSingular:  s.getString(keyRemoteSingular, defaults.Remote.SubmissionSingular),
			Token:               s.configStore.GetString(keyRemoteToken),
			RequestsPerSecond:   s.getFloat(keyRemoteRPS, defaults.Remote.RequestsPerSecond),
			Timeout:             s.getDuration(keyRemoteTimeout, defaults.Remote.Timeout),
			SpreadsheetID:       s.configStore.GetString(keyRemoteSpreadsheet),
			CaseListSheet:       s.getString(keyRemoteCaseSheet, defaults.Remote.CaseListSheet),
			SubmissionsSheet:    s.getString(keyRemoteSubSheet, defaults.Remote.SubmissionsSheet),
			CredentialsFile:     s.configStore.GetString(keyRemoteCredentials),
		},
		Cache: domain.CacheSettings{
			TTL:         s.getDuration(keyCacheTTL, defaults.Cache.TTL),
			MinCaseRows: s.getIntOrZero(keyCacheMinRows, defaults.Cache.MinCaseRows),
			KeyPrefix:   s.getString(keyCacheKeyPrefix, defaults.Cache.KeyPrefix),
		},
		Form: domain.FormSettings{
			Debounce:        s.getDuration(keyFormDebounce, defaults.Form.Debounce),
			CharLimit:       s.getIntOrZero(keyFormCharLimit, defaults.Form.CharLimit),
			ASCOptions:      s.getStrings(keyFormASCOptions, defaults.Form.ASCOptions),
			ADHDOptions:     s.getStrings(keyFormADHDOptions, defaults.Form.ADHDOptions),
			ReferralOptions: s.getStrings(keyFormReferrals, defaults.Form.ReferralOptions),
		},
		Report: domain.ReportSettings{
			StageURLs: map[domain.ReportStage]string{
				domain.ReportStageTemplate: s.configStore.GetString(keyReportTemplateURL),
				domain.ReportStageAnalysis: s.configStore.GetString(keyReportAnalysisURL),
				domain.ReportStageReport:   s.configStore.GetString(keyReportReportURL),
			},
			VerifyAttempts: s.getInt(keyReportVerifyTries, defaults.Report.VerifyAttempts),
			VerifyInterval: s.getDuration(keyReportVerifyPeriod, defaults.Report.VerifyInterval),
		},
		Schema: s.getSchema(defaults.Schema),
	}

	return settings, nil
}

// Set updates one configuration key and persists it.
// Values for known numeric and list keys are converted from their string form.
func (s *SettingsService) Set(key string, value any) error {
	if str, ok := value.(string); ok {
		converted, err := convertSetting(key, str)
		if err != nil {
			return err
		}
		value = converted
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Remote.IsConfigured() {
		return fmt.Errorf(
			"%w: remote backend %q is not configured, set it in %s",
			domain.ErrInvalidInput, settings.Remote.Backend.Description(), s.configStore.Path(),
		)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ConfigPath returns the configuration file path.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

func convertSetting(key, value string) (any, error) {
	switch key {
	case keyCacheMinRows, keyFormCharLimit, keyReportVerifyTries:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		return int64(n), nil
	case keyRemoteRPS:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		return f, nil
	case keyCacheTTL, keyFormDebounce, keyRemoteTimeout, keyReportVerifyPeriod:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("%w: %s must be a duration such as 1h or 500ms", domain.ErrInvalidInput, key)
		}
		return value, nil
	case keyRemoteBackend:
		if !domain.RemoteBackend(value).IsValid() {
			return nil, fmt.Errorf("%w: unknown remote backend %q", domain.ErrInvalidInput, value)
		}
		return value, nil
	case keyFormASCOptions, keyFormADHDOptions, keyFormReferrals:
		return splitList(value), nil
	}
	if strings.HasPrefix(key, keySchemaPrefix) {
		return splitList(value), nil
	}
	return value, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntOrZero honours an explicit zero.
func (s *SettingsService) getIntOrZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBackend(defaultVal domain.RemoteBackend) domain.RemoteBackend {
	val := s.configStore.GetString(keyRemoteBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.RemoteBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// getSchema overlays configured wire keys on the default schema, e.g.
// schema.case.id = ["chataId"] or schema.submission.strengths = ["str"].
func (s *SettingsService) getSchema(defaults domain.WireSchema) domain.WireSchema {
	schema := defaults
	c := &schema.Case
	c.ID = s.getAliases("schema.case.id", c.ID)
	c.Name = s.getAliases("schema.case.name", c.Name)
	c.ReportA = s.getAliases("schema.case.report_a", c.ReportA)
	c.ReportB = s.getAliases("schema.case.report_b", c.ReportB)
	c.HeaderLabels = s.getStrings("schema.case.header_labels", c.HeaderLabels)

	sub := &schema.Submission
	sub.RowID = s.getAliases(domain.RowIDKey, sub.RowID)
	sub.CaseID = s.getAliases("schema.submission.case_id", sub.CaseID)
	sub.Name = s.getAliases("schema.submission.name", sub.Name)
	sub.Timestamp = s.getAliases("schema.submission.timestamp", sub.Timestamp)
	sub.ASC = s.getAliases("schema.submission.asc", sub.ASC)
	sub.ADHD = s.getAliases("schema.submission.adhd", sub.ADHD)
	sub.Referrals = s.getAliases("schema.submission.referrals", sub.Referrals)

	fields := make(map[domain.FieldID]domain.Aliases, len(sub.Fields))
	for _, f := range domain.AllFields() {
		fields[f] = s.getAliases("schema.submission."+f.String(), sub.Fields[f])
	}
	sub.Fields = fields
	return schema
}

func (s *SettingsService) getAliases(key string, defaultVal domain.Aliases) domain.Aliases {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		if str := s.configStore.GetString(key); str != "" {
			return domain.Aliases{str}
		}
		return defaultVal
	}
	return domain.Aliases(val)
}
