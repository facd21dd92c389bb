package google

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// NewSheetsService creates a Sheets API service using the provided TokenSource.
// A nil TokenSource leaves authentication to the extra options.
func NewSheetsService(
	ctx context.Context,
	ts oauth2.TokenSource,
	opts ...option.ClientOption,
) (*sheetsapi.Service, error) {
	all := make([]option.ClientOption, 0, len(opts)+1)
	if ts != nil {
		all = append(all, option.WithTokenSource(ts))
	}
	all = append(all, opts...)
	return sheetsapi.NewService(ctx, all...)
}

// NewHTTPClient returns an authorised client with a per-request timeout.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource, timeout time.Duration) *http.Client {
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = timeout
	return hc
}
