package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"expensebot/internal/core"
	ports "expensebot/internal/sheets"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultLedgerSheet = "Ledger"
	DefaultPivotRange  = "Pivot!A1:Z200"
)

var ErrNotInitialized = errors.New("sheets service not initialized")

// Options configure the Sheets client. Service account credentials take
// precedence over an OAuth client and token pair.
type Options struct {
	SpreadsheetID string
	LedgerSheet   string
	PivotRange    string

	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	pivotRange    string
}

// Ensure interface conformance
var (
	_ ports.RecordAppender = (*Client)(nil)
	_ ports.BatchAppender  = (*Client)(nil)
	_ ports.LedgerReader   = (*Client)(nil)
	_ ports.PivotReader    = (*Client)(nil)
)

// New creates a Sheets client for the ledger and pivot ranges in opts.
func New(ctx context.Context, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newWithService(svc, opts), nil
}

func newWithService(svc *gsheet.Service, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		ledgerSheet:   opts.LedgerSheet,
		pivotRange:    opts.PivotRange,
	}
}

func (o Options) withDefaults() Options {
	o.SpreadsheetID = strings.TrimSpace(o.SpreadsheetID)
	if strings.TrimSpace(o.LedgerSheet) == "" {
		o.LedgerSheet = DefaultLedgerSheet
	}
	if strings.TrimSpace(o.PivotRange) == "" {
		o.PivotRange = DefaultPivotRange
	}
	return o
}

// newSheetsService prefers service account credentials and falls back to
// an OAuth client plus a stored token (see cmd/oauth-init).
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	saJSON, err := readSecret(opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(saJSON) > 0 {
		slog.InfoContext(ctx, "Creating Google Sheets service with service account",
			"credentials_size", len(saJSON))
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(saJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}

	ts, err := oauthTokenSource(ctx, opts)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return gsheet.NewService(ctx, goption.WithHTTPClient(oauth2.NewClient(ctx, ts)))
}

func oauthTokenSource(ctx context.Context, opts Options) (oauth2.TokenSource, error) {
	clientJSON, err := readSecret(opts.OAuthClientJSON, opts.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	tokenJSON, err := readSecret(opts.OAuthTokenJSON, opts.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if len(clientJSON) == 0 || len(tokenJSON) == 0 {
		return nil, errors.New("missing credentials: set a service account or an OAuth client and token")
	}

	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

// readSecret returns inline when set, else the contents of path, else nil.
func readSecret(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if p := strings.TrimSpace(path); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// Append adds one ledger row after the last non-empty row.
func (c *Client) Append(ctx context.Context, r core.LedgerRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", ErrNotInitialized
	}
	resp, err := c.appendRows(ctx, [][]interface{}{encodeRecord(r)})
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return c.ledgerRange(), nil
	}
	return resp.Updates.UpdatedRange, nil
}

// AppendBatch appends records in order with a single API call.
func (c *Client) AppendBatch(ctx context.Context, rs []core.LedgerRecord) (int, error) {
	if len(rs) == 0 {
		return 0, nil
	}
	if c.svc == nil {
		return 0, ErrNotInitialized
	}
	rows := make([][]interface{}, 0, len(rs))
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, encodeRecord(r))
	}
	resp, err := c.appendRows(ctx, rows)
	if err != nil {
		return 0, err
	}
	if resp.Updates == nil {
		return len(rows), nil
	}
	return int(resp.Updates.UpdatedRows), nil
}

func (c *Client) appendRows(ctx context.Context, rows [][]interface{}) (*gsheet.AppendValuesResponse, error) {
	rng := c.ledgerRange()
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("append to %s: %w", rng, err)
	}
	return resp, nil
}

// ReadLedger reads every ledger row. Malformed rows are skipped.
func (c *Client) ReadLedger(ctx context.Context) ([]core.LedgerRecord, error) {
	if c.svc == nil {
		return nil, ErrNotInitialized
	}
	rng := fmt.Sprintf("%s!A:Z", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	records, skipped := decodeLedger(resp.Values)
	if skipped > 0 {
		slog.DebugContext(ctx, "Skipped malformed ledger rows", "range", rng, "skipped", skipped)
	}
	return records, nil
}

// ReadPivot reads the pivot range as trimmed text cells.
func (c *Client) ReadPivot(ctx context.Context) ([][]string, error) {
	if c.svc == nil {
		return nil, ErrNotInitialized
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.pivotRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.pivotRange, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

// EnsureLedgerLayout writes the header row when the sheet is empty and
// applies header, date and amount formatting.
func (c *Client) EnsureLedgerLayout(ctx context.Context) error {
	if c.svc == nil {
		return ErrNotInitialized
	}
	headerRange := fmt.Sprintf("%s!A1:E1", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", headerRange, err)
	}
	if len(resp.Values) == 0 {
		vr := &gsheet.ValueRange{Values: [][]interface{}{ledgerHeader()}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	sheetID, err := c.sheetID(ctx, c.ledgerSheet)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: ledgerFormatRequests(sheetID)}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("format %s: %w", c.ledgerSheet, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}

func (c *Client) ledgerRange() string {
	return fmt.Sprintf("%s!A:E", c.ledgerSheet)
}

// URL is the browser link to the spreadsheet.
func (c *Client) URL() string {
	return SpreadsheetURL(c.spreadsheetID)
}

// SpreadsheetURL builds the browser link for a spreadsheet id.
func SpreadsheetURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + id
}

func ledgerFormatRequests(sheetID int64) []*gsheet.Request {
	column := func(col int64) *gsheet.GridRange {
		return &gsheet.GridRange{SheetId: sheetID, StartRowIndex: 1, StartColumnIndex: col, EndColumnIndex: col + 1}
	}
	return []*gsheet.Request{
		{RepeatCell: &gsheet.RepeatCellRequest{
			Range: &gsheet.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
			Cell: &gsheet.CellData{UserEnteredFormat: &gsheet.CellFormat{
				TextFormat:      &gsheet.TextFormat{Bold: true},
				BackgroundColor: &gsheet.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
			}},
			Fields: "userEnteredFormat(textFormat,backgroundColor)",
		}},
		{RepeatCell: &gsheet.RepeatCellRequest{
			Range: column(colDate),
			Cell: &gsheet.CellData{UserEnteredFormat: &gsheet.CellFormat{
				NumberFormat: &gsheet.NumberFormat{Type: "DATE", Pattern: "yyyy-mm-dd"},
			}},
			Fields: "userEnteredFormat.numberFormat",
		}},
		{RepeatCell: &gsheet.RepeatCellRequest{
			Range: column(colAmount),
			Cell: &gsheet.CellData{UserEnteredFormat: &gsheet.CellFormat{
				NumberFormat: &gsheet.NumberFormat{Type: "NUMBER", Pattern: "#,##0.00"},
			}},
			Fields: "userEnteredFormat.numberFormat",
		}},
	}
}
