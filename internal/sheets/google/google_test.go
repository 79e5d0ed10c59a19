package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"agenda/internal/config"
	"agenda/internal/core"
	"agenda/internal/export"
)

func TestNewFromConfig_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{})
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromConfig_InvalidOAuthClient(t *testing.T) {
	cfg := &config.Config{
		GoogleSpreadsheetID:   "test-id",
		GoogleOAuthClientJSON: `invalid-json`,
		GoogleOAuthTokenJSON:  `{"access_token":"test"}`,
	}

	_, err := NewFromConfig(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error with invalid JSON")
	}
	if !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	saFile := filepath.Join(dir, "sa.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(saFile, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"abc","refresh_token":"def"}`), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("service account file", func(t *testing.T) {
		creds, err := LoadCredentials(&config.Config{GoogleServiceAccountFile: saFile})
		if err != nil {
			t.Fatalf("LoadCredentials() error = %v", err)
		}
		if string(creds.ServiceAccountJSON) != `{"type":"service_account"}` {
			t.Errorf("unexpected service account: %s", creds.ServiceAccountJSON)
		}
	})

	t.Run("inline json wins over file", func(t *testing.T) {
		creds, err := LoadCredentials(&config.Config{
			GoogleServiceAccountJSON: `{"inline":true}`,
			GoogleServiceAccountFile: "/does/not/exist",
		})
		if err != nil {
			t.Fatalf("LoadCredentials() error = %v", err)
		}
		if string(creds.ServiceAccountJSON) != `{"inline":true}` {
			t.Errorf("unexpected service account: %s", creds.ServiceAccountJSON)
		}
	})

	t.Run("oauth token file", func(t *testing.T) {
		creds, err := LoadCredentials(&config.Config{
			GoogleOAuthClientJSON: `{"installed":{}}`,
			GoogleOAuthTokenFile:  tokenFile,
		})
		if err != nil {
			t.Fatalf("LoadCredentials() error = %v", err)
		}
		if creds.OAuthToken == nil || creds.OAuthToken.RefreshToken != "def" {
			t.Errorf("unexpected token: %+v", creds.OAuthToken)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredentials(&config.Config{GoogleServiceAccountFile: filepath.Join(dir, "nope.json")})
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := LoadCredentials(&config.Config{})
		if err == nil || !strings.Contains(err.Error(), "missing credentials") {
			t.Fatalf("expected missing credentials error, got %v", err)
		}
	})

	t.Run("bad token json", func(t *testing.T) {
		_, err := LoadCredentials(&config.Config{GoogleOAuthClientJSON: "{}", GoogleOAuthTokenJSON: "nope"})
		if err == nil || !strings.Contains(err.Error(), "parse oauth token") {
			t.Fatalf("expected token parse error, got %v", err)
		}
	})
}

func TestA1Range(t *testing.T) {
	tests := map[string]string{
		"Agenda 2024-05": "'Agenda 2024-05'",
		"Bob's Clients":  "'Bob''s Clients'",
		"Clients all":    "'Clients all'",
	}
	for in, want := range tests {
		if got := a1Range(in); got != want {
			t.Errorf("a1Range(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMissingTitles(t *testing.T) {
	got := missingTitles([]string{"Sheet1", "Agenda 2024-05"}, []string{"Agenda 2024-05", "Clients 2024-05", "Clients 2024-05"})
	want := []string{"Clients 2024-05"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("missingTitles() = %v, want %v", got, want)
	}
	if got := missingTitles(nil, nil); got != nil {
		t.Errorf("missingTitles(nil, nil) = %v, want nil", got)
	}
}

func TestClient_WriteWorkbookNotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.WriteWorkbook(context.Background(), export.Workbook{}); err == nil {
		t.Fatal("expected error when service is nil")
	}
}

// fakeSheetsAPI records the calls the client makes against the Sheets REST API.
type fakeSheetsAPI struct {
	mu       sync.Mutex
	existing []string
	calls    []string
	added    []string
	cleared  []string
	written  map[string][][]interface{}
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "/v4/spreadsheets/sheet-1":
		var sheets []map[string]interface{}
		for _, t := range f.existing {
			sheets = append(sheets, map[string]interface{}{"properties": map[string]interface{}{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"sheets": sheets})
	case path == "/v4/spreadsheets/sheet-1:batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.Unmarshal(body, &req)
		for _, rq := range req.Requests {
			f.added = append(f.added, rq.AddSheet.Properties.Title)
		}
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	case path == "/v4/spreadsheets/sheet-1/values:batchClear":
		var req gsheet.BatchClearValuesRequest
		_ = json.Unmarshal(body, &req)
		f.cleared = append(f.cleared, req.Ranges...)
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	case path == "/v4/spreadsheets/sheet-1/values:batchUpdate":
		var req gsheet.BatchUpdateValuesRequest
		_ = json.Unmarshal(body, &req)
		for _, d := range req.Data {
			f.written[d.Range] = d.Values
		}
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func TestClient_WriteWorkbook(t *testing.T) {
	api := &fakeSheetsAPI{existing: []string{"Sheet1", "Agenda 2024-05"}, written: map[string][][]interface{}{}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	c := NewWithService(svc, "sheet-1", "")

	wb := export.Workbook{
		Range: core.MonthRange(2024, 5),
		Services: []core.ServiceRow{{
			Service: core.Service{ID: 1, Date: core.NewDate(2024, 5, 2), Type: "Termites", Amount: core.Money{Cents: 1250}, Status: core.StatusPending},
			Linked:  core.LinkedClient{State: core.LinkActive, Name: "Ana"},
		}},
		Clients: []core.Client{{ID: 1, Name: "Ana"}},
	}

	titles, err := c.WriteWorkbook(context.Background(), wb)
	if err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}
	if !reflect.DeepEqual(titles, []string{"Agenda 2024-05", "Clients 2024-05"}) {
		t.Errorf("titles = %v", titles)
	}
	if !reflect.DeepEqual(api.added, []string{"Clients 2024-05"}) {
		t.Errorf("added tabs = %v, want only the missing one", api.added)
	}
	if !reflect.DeepEqual(api.cleared, []string{"'Agenda 2024-05'", "'Clients 2024-05'"}) {
		t.Errorf("cleared = %v", api.cleared)
	}

	rows := api.written["'Agenda 2024-05'"]
	if len(rows) != 2 {
		t.Fatalf("agenda rows = %v", rows)
	}
	if rows[1][2] != "Ana" || rows[1][6] != 12.5 {
		t.Errorf("unexpected agenda row: %v", rows[1])
	}
}
