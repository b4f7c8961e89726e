package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"ledgerlens/internal/report"
)

const testClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Reports", Credentials{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing spreadsheet id" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_InvalidClientJSON(t *testing.T) {
	_, err := New(context.Background(), "test-id", "", Credentials{
		ClientJSON: "invalid-json",
		TokenJSON:  `{"access_token":"test"}`,
	})
	if err == nil {
		t.Fatal("expected error with invalid JSON")
	}
	if !strings.Contains(err.Error(), "sheets service") || !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got: %v", err)
	}
}

func TestNew_ValidCredentials(t *testing.T) {
	c, err := New(context.Background(), "test-id", "", Credentials{
		ClientJSON: testClientJSON,
		TokenJSON:  `{"access_token":"test","token_type":"Bearer"}`,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.sheetName != defaultSheetName {
		t.Errorf("sheetName = %q, want %q", c.sheetName, defaultSheetName)
	}
}

func TestJsonUnmarshalIndirection(t *testing.T) {
	data := []byte(`{"access_token":"test","token_type":"Bearer"}`)
	var token oauth2.Token

	if err := jsonUnmarshal(data, &token); err != nil {
		t.Fatalf("jsonUnmarshal failed: %v", err)
	}
	if token.AccessToken != "test" {
		t.Errorf("expected access token 'test', got %s", token.AccessToken)
	}
	if err := jsonUnmarshal([]byte(`{invalid json}`), &token); err == nil {
		t.Fatal("expected error with invalid JSON")
	}
}

func TestNewSheetsService(t *testing.T) {
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte(testClientJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"test"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		creds   Credentials
		wantErr string
	}{
		{
			name:    "missing client",
			creds:   Credentials{TokenJSON: `{"access_token":"test"}`},
			wantErr: "missing oauth client (set LEDGERLENS_GOOGLE_OAUTH_CLIENT_JSON or LEDGERLENS_GOOGLE_OAUTH_CLIENT_FILE)",
		},
		{
			name:    "missing token",
			creds:   Credentials{ClientJSON: testClientJSON},
			wantErr: "missing oauth token (set LEDGERLENS_GOOGLE_OAUTH_TOKEN_JSON or LEDGERLENS_GOOGLE_OAUTH_TOKEN_FILE)",
		},
		{
			name:    "invalid token",
			creds:   Credentials{ClientJSON: testClientJSON, TokenJSON: "invalid-json"},
			wantErr: "oauth token",
		},
		{
			name:    "unreadable client file",
			creds:   Credentials{ClientFile: filepath.Join(dir, "absent.json"), TokenFile: tokenFile},
			wantErr: "read oauth client file",
		},
		{
			name:  "files",
			creds: Credentials{ClientFile: clientFile, TokenFile: tokenFile},
		},
		{
			name:  "inline wins over file",
			creds: Credentials{ClientJSON: testClientJSON, ClientFile: filepath.Join(dir, "absent.json"), TokenFile: tokenFile},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSheetsService(context.Background(), tt.creds)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestExport_NoService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Reports"}
	_, err := c.Export(context.Background(), report.Evaluation{ReportID: "r"})
	if err == nil || err.Error() != "sheets service not initialized" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"},
		{5, "E"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{703, "AAA"},
	}
	for _, tt := range tests {
		if got := columnName(tt.n); got != tt.want {
			t.Errorf("columnName(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestWidth(t *testing.T) {
	rows := [][]any{{"a"}, {"a", "b", "c"}, {}}
	if got := width(rows); got != 3 {
		t.Errorf("width() = %d, want 3", got)
	}
	if got := width(nil); got != 1 {
		t.Errorf("width(nil) = %d, want 1", got)
	}
}
