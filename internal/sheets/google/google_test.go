package google

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"smartexpense/internal/log"
)

type fakeSheets struct {
	mu      sync.Mutex
	cleared []string
	values  [][]any
	srv     *httptest.Server
}

func newFakeSheets(t *testing.T) *fakeSheets {
	f := &fakeSheets{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
			f.cleared = append(f.cleared, r.URL.Path)
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
		case r.Method == http.MethodPut:
			var body struct {
				Values [][]any `json:"values"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.values = body.Values
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRange":"Transactions!A1:C3"}`))
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSheets) options() []goption.ClientOption {
	return []goption.ClientOption{
		goption.WithEndpoint(f.srv.URL + "/"),
		goption.WithHTTPClient(f.srv.Client()),
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestCredentialsFromFileLogsWithComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))

	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Component: log.ComponentExport, Output: &buf})
	opt, err := credentialsOption(context.Background(), Config{ServiceAccountFile: path, Logger: logger})
	require.NoError(t, err)
	assert.NotNil(t, opt)
	assert.Contains(t, buf.String(), "Read service account file")
	assert.Contains(t, buf.String(), "component=export")
}

func TestReplaceTable(t *testing.T) {
	fake := newFakeSheets(t)
	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"}, fake.options()...)
	require.NoError(t, err)
	assert.Equal(t, DefaultSheetName, c.sheetName)

	ref, err := c.ReplaceTable(context.Background(),
		[]string{"id", "amount", "note"},
		[][]string{{"a", "10", "x"}, {"b", "20.5", ""}})
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A1:C3", ref)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.cleared, 1)
	assert.Contains(t, fake.cleared[0], "/v4/spreadsheets/sheet-1/values/")
	require.Len(t, fake.values, 3)
	assert.Equal(t, []any{"id", "amount", "note"}, fake.values[0])
	assert.Equal(t, []any{"b", "20.5", ""}, fake.values[2])
}

func TestReplaceTableRejectsEmptyHeader(t *testing.T) {
	fake := newFakeSheets(t)
	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"}, fake.options()...)
	require.NoError(t, err)
	_, err = c.ReplaceTable(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestColumnName(t *testing.T) {
	cases := map[int]string{1: "A", 7: "G", 26: "Z", 27: "AA", 52: "AZ", 53: "BA"}
	for n, want := range cases {
		assert.Equal(t, want, columnName(n), "column %d", n)
	}
}
