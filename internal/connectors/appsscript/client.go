package appsscript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.ReportGenerator = (*Client)(nil)

// ErrStageNotConfigured indicates a stage has no web app URL.
var ErrStageNotConfigured = errors.New("appsscript: stage URL is not configured")

const (
	maxBodyBytes   = 4 << 20
	callbackPrefix = "r3form_"

	paramCallback = "callback"
	paramCaseID   = "chataId"
	paramTest     = "test"
)

// Client runs report stages against Apps Script web apps.
type Client struct {
	urls map[domain.ReportStage]string
	http *http.Client
}

// New creates a client from report settings. A nil httpClient gets one with
// the given timeout.
func New(settings domain.ReportSettings, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	urls := make(map[domain.ReportStage]string, len(settings.StageURLs))
	for stage, u := range settings.StageURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls[stage] = u
		}
	}
	return &Client{urls: urls, http: httpClient}
}

// RunStage calls a stage for a case.
func (c *Client) RunStage(ctx context.Context, stage domain.ReportStage, caseID string) (*domain.StageResult, error) {
	return c.call(ctx, stage, url.Values{paramCaseID: {caseID}})
}

// Ping calls a stage in test mode.
func (c *Client) Ping(ctx context.Context, stage domain.ReportStage) (*domain.StageResult, error) {
	return c.call(ctx, stage, url.Values{paramTest: {"true"}, paramCaseID: {"ping"}})
}

func (c *Client) call(ctx context.Context, stage domain.ReportStage, params url.Values) (*domain.StageResult, error) {
	op := "report " + stage.String()
	base, ok := c.urls[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageNotConfigured, stage)
	}

	target, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStageNotConfigured, stage, err)
	}
	callback := callbackPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	q := target.Query()
	q.Set(paramCallback, callback)
	for k, v := range params {
		q[k] = v
	}
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/javascript, application/json")

	logger.Debug("appsscript: %s %s", stage, target.Redacted())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.NetworkError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.NetworkError{Op: op, Status: resp.StatusCode}
	}

	payload, err := StripJSONP(body, callback)
	if err != nil {
		return nil, &domain.FormatError{Op: op, Err: err}
	}

	var res domain.StageResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, &domain.FormatError{Op: op, Err: err}
	}
	res.Stage = stage
	return &res, nil
}

// StripJSONP returns the JSON argument of a callback(...) body. A plain
// JSON object is returned unchanged. An empty callback accepts any name.
func StripJSONP(body []byte, callback string) ([]byte, error) {
	b := bytes.TrimSpace(body)
	if bytes.HasPrefix(b, []byte("{")) {
		return b, nil
	}

	b = bytes.TrimSpace(bytes.TrimSuffix(b, []byte(";")))
	open := bytes.IndexByte(b, '(')
	if open <= 0 || !bytes.HasSuffix(b, []byte(")")) {
		return nil, errors.New("response is not a JSONP call")
	}
	name := string(bytes.TrimSpace(b[:open]))
	if callback != "" && name != callback {
		return nil, fmt.Errorf("unexpected JSONP callback %q", name)
	}
	return bytes.TrimSpace(b[open+1 : len(b)-1]), nil
}
