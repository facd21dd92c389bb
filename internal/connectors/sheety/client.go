package sheety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.RemoteDataSource = (*Client)(nil)

const (
	// maxBodyBytes caps a response body read.
	maxBodyBytes = 16 << 20

	// HeaderRequestID correlates a request with proxy logs.
	HeaderRequestID = "X-Request-Id"
)

// Client talks to the Sheety proxy.
type Client struct {
	cfg     *Config
	http    *http.Client
	limiter *RateLimiter
}

// New creates a client. A nil httpClient gets one with the configured timeout.
func New(cfg *Config, httpClient *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: NewRateLimiter(cfg.RequestsPerSecond),
	}, nil
}

// FetchCaseList returns every case row, dropping empty ids and header rows.
func (c *Client) FetchCaseList(ctx context.Context) ([]domain.CaseRecord, error) {
	const op = "fetch case list"
	rows, err := c.fetchCollection(ctx, op, c.cfg.caseListURL(), c.cfg.CaseListResource, true)
	if err != nil {
		return nil, err
	}

	cases := make([]domain.CaseRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := c.cfg.Schema.Case.DecodeCase(row); ok {
			cases = append(cases, rec)
		}
	}
	logger.Debug("sheety: %d of %d case rows kept", len(cases), len(rows))
	return cases, nil
}

// FetchSubmissions returns every submission row. A response without the
// collection field is an empty sheet.
func (c *Client) FetchSubmissions(ctx context.Context) ([]domain.SubmissionRecord, error) {
	const op = "fetch submissions"
	rows, err := c.fetchCollection(ctx, op, c.cfg.submissionsURL(), c.cfg.SubmissionsResource, false)
	if err != nil {
		return nil, err
	}

	subs := make([]domain.SubmissionRecord, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, c.cfg.Schema.Submission.DecodeSubmission(row))
	}
	return subs, nil
}

// CreateSubmission POSTs a new row and returns the id the proxy assigned.
func (c *Client) CreateSubmission(ctx context.Context, rec domain.SubmissionRecord) (int, error) {
	body, err := c.write(ctx, http.MethodPost, c.cfg.submissionsURL(), rec)
	if err != nil {
		return 0, err
	}

	row, ok := c.decodeSingular(body)
	if !ok {
		logger.Warn("sheety: create response carried no row, id unknown")
		return 0, nil
	}
	return c.cfg.Schema.Submission.DecodeSubmission(row).RowID, nil
}

// UpdateSubmission PUTs a row by id.
func (c *Client) UpdateSubmission(ctx context.Context, rowID int, rec domain.SubmissionRecord) error {
	target := c.cfg.submissionsURL() + "/" + strconv.Itoa(rowID)
	_, err := c.write(ctx, http.MethodPut, target, rec)
	return err
}

func (c *Client) fetchCollection(
	ctx context.Context,
	op, target, field string,
	required bool,
) ([]domain.WireRow, error) {
	resp, body, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.NetworkError{Op: op, Status: resp.StatusCode, Err: c.limiter.CheckRateLimit(resp)}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &domain.FormatError{Op: op, Err: err}
	}

	raw, ok := findField(envelope, field)
	if !ok || string(raw) == "null" {
		if required {
			return nil, &domain.FormatError{Op: op, Field: field}
		}
		return []domain.WireRow{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []domain.WireRow
	if err := dec.Decode(&rows); err != nil {
		return nil, &domain.FormatError{Op: op, Field: field, Err: err}
	}
	return rows, nil
}

func (c *Client) write(ctx context.Context, method, target string, rec domain.SubmissionRecord) ([]byte, error) {
	payload, err := json.Marshal(map[string]domain.WireRow{
		c.cfg.Singular: c.cfg.Schema.Submission.EncodeSubmission(rec),
	})
	if err != nil {
		return nil, &domain.SubmitError{Method: method, URL: target, Err: err}
	}

	resp, body, err := c.do(ctx, method, target, payload)
	if err != nil {
		return nil, &domain.SubmitError{Method: method, URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = c.limiter.CheckRateLimit(resp)
		return nil, &domain.SubmitError{Method: method, URL: target, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) decodeSingular(body []byte) (domain.WireRow, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false
	}
	raw, ok := findField(envelope, c.cfg.Singular)
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var row domain.WireRow
	if err := dec.Decode(&row); err != nil || row == nil {
		return nil, false
	}
	return row, true
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) (*http.Response, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	logger.Debug("sheety: %s %s (%s)", method, target, requestID)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	logger.Debug("sheety: %s %s -> %d (%d bytes)", method, target, resp.StatusCode, len(body))
	return resp, body, nil
}

// findField returns the envelope field matching name exactly, or by
// normalised key.
func findField(envelope map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if raw, ok := envelope[name]; ok {
		return raw, true
	}
	want := domain.NormaliseWireKey(name)
	for k, raw := range envelope {
		if domain.NormaliseWireKey(k) == want {
			return raw, true
		}
	}
	return nil, false
}
