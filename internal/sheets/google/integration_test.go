//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ReplaceTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:      spreadsheetID,
		SheetName:          os.Getenv("GOOGLE_SHEET_NAME"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ref, err := client.ReplaceTable(ctx,
		[]string{"date", "type", "category", "amount", "note"},
		[][]string{{time.Now().Format("2006-01-02"), "EXPENSE", "Food", "12.34", "Integration Test"}})
	if err != nil {
		t.Fatalf("Failed to replace table: %v", err)
	}
	if ref == "" {
		t.Error("Expected non-empty range reference")
	}
	t.Logf("Wrote %s", ref)
}
