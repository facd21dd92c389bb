// Package google provides shared infrastructure for the Google Sheets backend.
//
// It contains:
//   - a TokenSource factory for service account keys or static tokens
//   - the Sheets service factory
//   - mapping of Google API errors (401, 403, 404, 429) to domain errors
//   - rate limiting to respect Sheets API quotas
//
// # Usage
//
//	ts, err := google.NewTokenSource(ctx, google.Credentials{File: keyPath})
//	svc, err := google.NewSheetsService(ctx, ts)
//
// # OAuth2 Scopes
//
// The backend uses https://www.googleapis.com/auth/spreadsheets. The
// spreadsheet must be shared with the service account's client_email.
package google
