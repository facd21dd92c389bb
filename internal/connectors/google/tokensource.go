package google

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ErrNoCredentials indicates neither a credentials file nor a token is set.
var ErrNoCredentials = errors.New("google: credentials_file or token is required")

// Credentials selects how requests are authorised.
type Credentials struct {
	// File is a service account JSON key. The spreadsheet must be shared
	// with the account's client_email.
	File string

	// Token is a pre-issued access token, used when File is empty.
	Token string
}

// NewTokenSource creates an oauth2.TokenSource scoped to the Sheets API.
// The returned TokenSource can be used with option.WithTokenSource() when
// creating Google API services.
func NewTokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	if creds.File != "" {
		data, err := os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		cfg, err := googleoauth.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		return cfg.TokenSource(ctx), nil
	}

	if creds.Token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: creds.Token,
			TokenType:   "Bearer",
		}), nil
	}

	return nil, ErrNoCredentials
}
