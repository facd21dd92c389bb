package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/r3form/internal/connectors/google"
	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/logger"
)

// Ensure Backend implements the interface.
var _ driven.RemoteDataSource = (*Backend)(nil)

const (
	valueInputRaw  = "RAW"
	insertRows     = "INSERT_ROWS"
	firstDataRow   = 2
	headerRowRange = "1:1"
)

// Backend is a RemoteDataSource over a Google spreadsheet.
type Backend struct {
	cfg     *Config
	svc     *sheetsapi.Service
	limiter *google.RateLimiter
}

// Connect authorises with the configured credentials and creates a backend.
// Extra options are passed to the Sheets service.
func Connect(ctx context.Context, cfg *Config, opts ...option.ClientOption) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ts, err := google.NewTokenSource(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		opts = append([]option.ClientOption{option.WithHTTPClient(google.NewHTTPClient(ctx, ts, cfg.Timeout))}, opts...)
	}
	svc, err := google.NewSheetsService(ctx, ts, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(cfg, svc)
}

// New creates a backend over an existing Sheets service.
func New(cfg *Config, svc *sheetsapi.Service) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Backend{cfg: cfg, svc: svc, limiter: cfg.limiter()}, nil
}

// FetchCaseList returns every case row below the header.
func (b *Backend) FetchCaseList(ctx context.Context) ([]domain.CaseRecord, error) {
	const op = "fetch case list"
	values, err := b.read(ctx, op, quoteSheet(b.cfg.CaseListSheet))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, &domain.FormatError{Op: op, Field: b.cfg.CaseListSheet}
	}

	rows := b.wireRows(values)
	cases := make([]domain.CaseRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := b.cfg.Schema.Case.DecodeCase(row); ok {
			cases = append(cases, rec)
		}
	}
	logger.Debug("sheets: %d of %d case rows kept", len(cases), len(rows))
	return cases, nil
}

// FetchSubmissions returns every submission row. An empty sheet has none.
func (b *Backend) FetchSubmissions(ctx context.Context) ([]domain.SubmissionRecord, error) {
	values, err := b.read(ctx, "fetch submissions", quoteSheet(b.cfg.SubmissionsSheet))
	if err != nil {
		return nil, err
	}

	rows := b.wireRows(values)
	subs := make([]domain.SubmissionRecord, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, b.cfg.Schema.Submission.DecodeSubmission(row))
	}
	return subs, nil
}

// CreateSubmission appends a row and returns its sheet row number.
func (b *Backend) CreateSubmission(ctx context.Context, rec domain.SubmissionRecord) (int, error) {
	target := quoteSheet(b.cfg.SubmissionsSheet) + "!A1"
	row, err := b.encode(ctx, http.MethodPost, target, rec)
	if err != nil {
		return 0, err
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return 0, &domain.SubmitError{Method: http.MethodPost, URL: target, Err: err}
	}
	resp, err := b.svc.Spreadsheets.Values.
		Append(b.cfg.SpreadsheetID, target, &sheetsapi.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		b.backoff(err)
		return 0, google.WrapWriteError(http.MethodPost, target, err)
	}

	if resp.Updates == nil {
		logger.Warn("sheets: append response carried no range, id unknown")
		return 0, nil
	}
	return rowNumber(resp.Updates.UpdatedRange), nil
}

// UpdateSubmission overwrites the row with the given sheet row number.
func (b *Backend) UpdateSubmission(ctx context.Context, rowID int, rec domain.SubmissionRecord) error {
	target := quoteSheet(b.cfg.SubmissionsSheet) + "!A" + strconv.Itoa(rowID)
	if rowID < firstDataRow {
		return &domain.SubmitError{
			Method: http.MethodPut,
			URL:    target,
			Err:    fmt.Errorf("%w: row %d is not a data row", domain.ErrInvalidInput, rowID),
		}
	}

	row, err := b.encode(ctx, http.MethodPut, target, rec)
	if err != nil {
		return err
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return &domain.SubmitError{Method: http.MethodPut, URL: target, Err: err}
	}
	_, err = b.svc.Spreadsheets.Values.
		Update(b.cfg.SpreadsheetID, target, &sheetsapi.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		b.backoff(err)
		return google.WrapWriteError(http.MethodPut, target, err)
	}
	return nil
}

func (b *Backend) read(ctx context.Context, op, rng string) ([][]interface{}, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, &domain.NetworkError{Op: op, Err: err}
	}
	vr, err := b.svc.Spreadsheets.Values.Get(b.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		b.backoff(err)
		return nil, google.WrapError(op, err)
	}
	logger.Debug("sheets: %s read %d rows", rng, len(vr.Values))
	return vr.Values, nil
}

// encode lays the record out in the submission sheet's column order.
func (b *Backend) encode(ctx context.Context, method, target string, rec domain.SubmissionRecord) ([]interface{}, error) {
	values, err := b.read(ctx, "read submissions header", quoteSheet(b.cfg.SubmissionsSheet)+"!"+headerRowRange)
	if err != nil {
		return nil, &domain.SubmitError{Method: method, URL: target, Err: err}
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, &domain.SubmitError{
			Method: method,
			URL:    target,
			Err:    fmt.Errorf("%w: %s has no header row", domain.ErrFormat, b.cfg.SubmissionsSheet),
		}
	}
	return rowValues(headerOf(values[0]), b.cfg.Schema.Submission, rec), nil
}

// wireRows keys each data row by the header. Blank rows are skipped. The
// schema's row id key carries the sheet row number.
func (b *Backend) wireRows(values [][]interface{}) []domain.WireRow {
	if len(values) < 2 {
		return []domain.WireRow{}
	}
	header := headerOf(values[0])
	idKey := b.cfg.Schema.Submission.RowID.Primary()

	rows := make([]domain.WireRow, 0, len(values)-1)
	for i, cells := range values[1:] {
		row := make(domain.WireRow, len(header)+1)
		blank := true
		for col, name := range header {
			if name == "" || col >= len(cells) {
				continue
			}
			row[name] = cells[col]
			if s, ok := cells[col].(string); !ok || strings.TrimSpace(s) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		row[idKey] = i + firstDataRow
		rows = append(rows, row)
	}
	return rows
}

// backoff records a rate limit window from a 429 response.
func (b *Backend) backoff(err error) {
	if !google.IsRateLimited(err) {
		return
	}
	b.limiter.RecordRateLimitError(google.RetryAfterFromError(err))
	logger.Warn("sheets: rate limited, backing off")
}

func headerOf(cells []interface{}) []string {
	header := make([]string, len(cells))
	for i, c := range cells {
		header[i] = strings.TrimSpace(fmt.Sprint(c))
	}
	return header
}

// rowValues maps encoded fields to header columns. Columns the schema does
// not know, and the row id column, are left nil so the API skips them.
func rowValues(header []string, schema domain.SubmissionSchema, rec domain.SubmissionRecord) []interface{} {
	encoded := schema.EncodeSubmission(rec)
	primary := columnIndex(schema)
	idKey := domain.NormaliseWireKey(schema.RowID.Primary())

	row := make([]interface{}, len(header))
	for i, h := range header {
		n := domain.NormaliseWireKey(h)
		if n == "" || n == idKey {
			continue
		}
		if key, ok := primary[n]; ok {
			row[i] = encoded[key]
		}
	}
	return row
}

// columnIndex maps every normalised alias to its field's primary key.
func columnIndex(schema domain.SubmissionSchema) map[string]string {
	groups := []domain.Aliases{
		schema.CaseID, schema.Name, schema.Timestamp,
		schema.ASC, schema.ADHD, schema.Referrals,
	}
	for _, f := range domain.AllFields() {
		groups = append(groups, schema.Fields[f])
	}

	idx := make(map[string]string)
	for _, g := range groups {
		for _, alias := range g {
			idx[domain.NormaliseWireKey(alias)] = g.Primary()
		}
	}
	return idx
}

// rowNumber extracts the first row number from an A1 range such as
// 'R3_Form'!A5:L5.
func rowNumber(a1 string) int {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	a1 = strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	end := 0
	for end < len(a1) && a1[end] >= '0' && a1[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(a1[:end])
	return n
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
