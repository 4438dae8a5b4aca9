package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	goption "google.golang.org/api/option"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := New(nil, "id", "")
	if c.Name() != "sheets:id/Waste" {
		t.Errorf("name = %q", c.Name())
	}
	if _, err := c.ReadRecords(context.Background()); err == nil {
		t.Error("expected error with nil service")
	}
}

func TestClient_FingerprintThenRead(t *testing.T) {
	var calls atomic.Int32
	rows := [][]string{
		{"Category", "Weight (lbs)", "Year"},
		{"paper", "10", "2020"},
		{"Glass", "3", "2021"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.Contains(r.URL.Path, "/spreadsheets/sheet-id/values/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "Waste!A1:C3",
			"majorDimension": "ROWS",
			"values":         rows,
		})
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewWithOptions(ctx, "sheet-id", "Waste",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	fp, err := c.Fingerprint(ctx)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if fp == "" {
		t.Fatal("empty fingerprint")
	}
	recs, err := c.ReadRecords(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 || recs[0].Category != "paper" || recs[1].Year != "2021" {
		t.Errorf("unexpected records: %+v", recs)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected one API call, got %d", got)
	}

	if _, err := c.ReadRecords(ctx); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected a fresh fetch, got %d calls", got)
	}
}
