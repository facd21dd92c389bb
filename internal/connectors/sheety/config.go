package sheety

import (
	"errors"
	"net/url"
	"time"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

// Configuration errors.
var (
	ErrMissingBaseURL  = errors.New("sheety: base_url is required")
	ErrInvalidBaseURL  = errors.New("sheety: base_url must be an http(s) URL")
	ErrMissingResource = errors.New("sheety: case list and submissions resources are required")
)

// Config holds Sheety connection settings.
type Config struct {
	// BaseURL is https://api.sheety.co/<id>/<project>.
	BaseURL string

	// CaseListResource and SubmissionsResource are the sheet endpoints,
	// also used as the collection field of GET responses.
	CaseListResource    string
	SubmissionsResource string

	// Singular wraps POST and PUT bodies.
	Singular string

	// Token is sent as a bearer token when set.
	Token string

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64

	// Timeout bounds one request.
	Timeout time.Duration

	Schema domain.WireSchema
}

// ConfigFromSettings builds a Config from application settings.
func ConfigFromSettings(s domain.AppSettings) *Config {
	singular := s.Remote.SubmissionSingular
	if singular == "" {
		singular = s.Remote.SubmissionsResource
	}
	return &Config{
		BaseURL:             s.Remote.BaseURL,
		CaseListResource:    s.Remote.CaseListResource,
		SubmissionsResource: s.Remote.SubmissionsResource,
		Singular:            singular,
		Token:               s.Remote.Token,
		RequestsPerSecond:   s.Remote.RequestsPerSecond,
		Timeout:             s.Remote.Timeout,
		Schema:              s.Schema,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.CaseListResource == "" || c.SubmissionsResource == "" {
		return ErrMissingResource
	}
	return c.Schema.Validate()
}

func (c *Config) caseListURL() string {
	return c.BaseURL + "/" + url.PathEscape(c.CaseListResource)
}

func (c *Config) submissionsURL() string {
	return c.BaseURL + "/" + url.PathEscape(c.SubmissionsResource)
}
