package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerlens/internal/log"
	"ledgerlens/internal/report"
	"ledgerlens/internal/sheets"
)

const defaultSheetName = "Reports"

// jsonUnmarshal is swapped in tests.
var jsonUnmarshal = json.Unmarshal

// Credentials holds the OAuth client and saved token, inline or as files.
// Inline JSON wins over a file.
type Credentials struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// Client appends evaluated reports to one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// Row count of the sheet, so consecutive exports skip the A:A read.
	mu                 sync.Mutex
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ sheets.ReportExporter = (*Client)(nil)

// New creates a Sheets exporter for spreadsheetID. An empty sheetName
// defaults to "Reports".
func New(ctx context.Context, spreadsheetID, sheetName string, creds Credentials) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		logger:             log.Default(log.ComponentSheets),
		cacheValidDuration: 2 * time.Minute,
	}, nil
}

func readSecret(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if f := strings.TrimSpace(file); f != "" {
		return os.ReadFile(f)
	}
	return nil, nil
}

// newSheetsService builds a Sheets service from an OAuth client config and
// a token saved by oauth-init. The token source refreshes expired tokens.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	clientJSON, err := readSecret(creds.ClientJSON, creds.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	if len(clientJSON) == 0 {
		return nil, errors.New("missing oauth client (set LEDGERLENS_GOOGLE_OAUTH_CLIENT_JSON or LEDGERLENS_GOOGLE_OAUTH_CLIENT_FILE)")
	}

	tokenJSON, err := readSecret(creds.TokenJSON, creds.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	if len(tokenJSON) == 0 {
		return nil, errors.New("missing oauth token (set LEDGERLENS_GOOGLE_OAUTH_TOKEN_JSON or LEDGERLENS_GOOGLE_OAUTH_TOKEN_FILE)")
	}

	config, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var token oauth2.Token
	if err := jsonUnmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	// oauth2 wraps the base client found in the context
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(config.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// InvalidateRowCache forces the next export to re-read the sheet size.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) rowCount(ctx context.Context) (int, error) {
	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		n := c.cachedRowCount
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheetName, err)
	}

	c.mu.Lock()
	c.cachedRowCount = len(resp.Values)
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return len(resp.Values), nil
}

// Export writes the evaluation below the last used row and returns the
// written range.
func (c *Client) Export(ctx context.Context, ev report.Evaluation) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rows := sheets.Rows(ev)
	existing, err := c.rowCount(ctx)
	if err != nil {
		return "", err
	}
	first := existing + 1
	last := existing + len(rows)

	rng := fmt.Sprintf("%s!A%d", c.sheetName, first)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return "", fmt.Errorf("failed to write report %s to sheet %s: %w", ev.ReportID, c.sheetName, err)
	}

	c.mu.Lock()
	c.cachedRowCount = last
	c.mu.Unlock()

	ref := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, first, columnName(width(rows)), last)
	c.logger.InfoContext(ctx, "Exported report to sheet",
		log.FieldReportID, ev.ReportID,
		log.FieldSheetsRange, ref)
	return ref, nil
}

func width(rows [][]any) int {
	w := 1
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
