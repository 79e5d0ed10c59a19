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

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"agenda/internal/config"
	"agenda/internal/export"
	ports "agenda/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
}

// Ensure interface conformance
var _ ports.WorkbookWriter = (*Client)(nil)

// Credentials holds the raw credential material for the Sheets API. A
// service account wins over an OAuth client + token pair.
type Credentials struct {
	ServiceAccountJSON []byte
	OAuthClientJSON    []byte
	OAuthToken         *oauth2.Token
}

// NewFromConfig creates a Sheets client for the configured spreadsheet.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.GoogleSpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	creds, err := LoadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, prefix: cfg.ExportSheetPrefix}, nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, prefix string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, prefix: prefix}
}

// LoadCredentials reads inline or file credentials named by the config.
func LoadCredentials(cfg *config.Config) (Credentials, error) {
	var creds Credentials

	sa, err := inlineOrFile(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return creds, fmt.Errorf("read service account: %w", err)
	}
	if len(sa) > 0 {
		creds.ServiceAccountJSON = sa
		return creds, nil
	}

	clientJSON, err := inlineOrFile(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return creds, fmt.Errorf("read oauth client: %w", err)
	}
	tokenJSON, err := inlineOrFile(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return creds, fmt.Errorf("read oauth token: %w", err)
	}
	if len(clientJSON) == 0 || len(tokenJSON) == 0 {
		return creds, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON/FILE, or GOOGLE_OAUTH_CLIENT_* and GOOGLE_OAUTH_TOKEN_*)")
	}

	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return creds, fmt.Errorf("parse oauth token: %w", err)
	}
	creds.OAuthClientJSON = clientJSON
	creds.OAuthToken = &tok
	return creds, nil
}

func inlineOrFile(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if path = strings.TrimSpace(path); path != "" {
		return os.ReadFile(path)
	}
	return nil, nil
}

// newSheetsService initializes a Sheets Service from service account or
// OAuth user credentials.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	if len(creds.ServiceAccountJSON) > 0 {
		slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(creds.ServiceAccountJSON),
			"scope", gsheet.SpreadsheetsScope)
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(creds.ServiceAccountJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}

	oauthCfg, err := gauth.ConfigFromJSON(creds.OAuthClientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	// Token refreshes go through the pooled client as well.
	base := context.WithValue(context.Background(), oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauthCfg.Client(base, creds.OAuthToken)

	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token",
		"token_valid", creds.OAuthToken.Valid())
	return gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
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
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// WriteWorkbook writes every sheet of wb to its own tab, creating missing
// tabs and clearing existing ones first.
func (c *Client) WriteWorkbook(ctx context.Context, wb export.Workbook) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	sheets := wb.Sheets()
	titles := make([]string, len(sheets))
	for i, sh := range sheets {
		titles[i] = ports.TabTitle(c.prefix, sh.Name, wb.Range)
	}

	existing, err := c.tabTitles(ctx)
	if err != nil {
		return nil, err
	}
	if missing := missingTitles(existing, titles); len(missing) > 0 {
		if err := c.addTabs(ctx, missing); err != nil {
			return nil, err
		}
	}

	ranges := make([]string, len(titles))
	data := make([]*gsheet.ValueRange, len(titles))
	for i, title := range titles {
		ranges[i] = a1Range(title)
		data[i] = &gsheet.ValueRange{Range: a1Range(title), Values: sheets[i].Rows}
	}

	_, err = c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID,
		&gsheet.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("clear tabs %v: %w", titles, err)
	}

	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("write tabs %v: %w", titles, err)
	}

	slog.InfoContext(ctx, "Workbook written to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"tabs", titles,
		"services", len(wb.Services),
		"clients", len(wb.Clients))
	return titles, nil
}

func (c *Client) tabTitles(ctx context.Context) ([]string, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	out := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			out = append(out, sh.Properties.Title)
		}
	}
	return out, nil
}

func (c *Client) addTabs(ctx context.Context, titles []string) error {
	reqs := make([]*gsheet.Request, len(titles))
	for i, t := range titles {
		reqs[i] = &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
			Properties: &gsheet.SheetProperties{Title: t},
		}}
	}
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID,
		&gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create tabs %v: %w", titles, err)
	}
	return nil
}

// a1Range addresses a whole tab, quoting the title for A1 notation.
func a1Range(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func missingTitles(existing, wanted []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[t] = struct{}{}
	}
	var out []string
	for _, t := range wanted {
		if _, ok := have[t]; !ok {
			out = append(out, t)
			have[t] = struct{}{}
		}
	}
	return out
}
