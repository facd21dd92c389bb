package sheets

import (
	"errors"
	"time"

	"github.com/custodia-labs/r3form/internal/connectors/google"
	"github.com/custodia-labs/r3form/internal/core/domain"
)

// Configuration errors.
var (
	ErrMissingSpreadsheet = errors.New("sheets: spreadsheet_id is required")
	ErrMissingSheet       = errors.New("sheets: case list and submissions sheet names are required")
)

// Config holds Sheets backend settings.
type Config struct {
	SpreadsheetID    string
	CaseListSheet    string
	SubmissionsSheet string

	Credentials google.Credentials

	// RequestsPerSecond overrides the Sheets default rate when positive.
	RequestsPerSecond float64

	Timeout time.Duration

	Schema domain.WireSchema
}

// ConfigFromSettings builds a Config from application settings.
func ConfigFromSettings(s domain.AppSettings) *Config {
	return &Config{
		SpreadsheetID:    s.Remote.SpreadsheetID,
		CaseListSheet:    s.Remote.CaseListSheet,
		SubmissionsSheet: s.Remote.SubmissionsSheet,
		Credentials: google.Credentials{
			File:  s.Remote.CredentialsFile,
			Token: s.Remote.Token,
		},
		RequestsPerSecond: s.Remote.RequestsPerSecond,
		Timeout:           s.Remote.Timeout,
		Schema:            s.Schema,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return ErrMissingSpreadsheet
	}
	if c.CaseListSheet == "" || c.SubmissionsSheet == "" {
		return ErrMissingSheet
	}
	return c.Schema.Validate()
}

func (c *Config) limiter() *google.RateLimiter {
	if c.RequestsPerSecond > 0 {
		return google.NewRateLimiterWithConfig(google.RateLimitConfig{
			RequestsPerSecond: c.RequestsPerSecond,
			BurstSize:         google.DefaultRateLimits[google.ServiceSheets].BurstSize,
		})
	}
	return google.NewRateLimiter(google.ServiceSheets)
}
