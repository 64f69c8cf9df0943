package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"smartexpense/internal/log"
	ports "smartexpense/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetName = "Transactions"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.TableWriter = (*Client)(nil)

// Config identifies the target spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	Logger             *log.Logger
}

// New creates a Sheets client. Explicit options replace the service account lookup.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	if len(opts) == 0 {
		credOpt, err := credentialsOption(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			credOpt,
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// credentialsOption resolves service account credentials from inline JSON, a file,
// or GOOGLE_APPLICATION_CREDENTIALS.
func credentialsOption(ctx context.Context, cfg Config) (goption.ClientOption, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentExport)
	}
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return goption.WithCredentialsJSON([]byte(serviceAccountJSON)), nil
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.DebugContext(ctx, "Read service account file", "path", serviceAccountFile, "size", len(data))
		return goption.WithCredentialsJSON(data), nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ReplaceTable clears the tab and writes the header plus rows starting at A1.
func (c *Client) ReplaceTable(ctx context.Context, header []string, rows [][]string) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(header) == 0 {
		return "", errors.New("empty header")
	}

	lastCol := columnName(len(header))
	clearRange := fmt.Sprintf("%s!A:%s", c.sheetName, lastCol)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear %s: %w", clearRange, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, toInterfaces(header))
	for _, r := range rows {
		values = append(values, toInterfaces(r))
	}

	writeRange := fmt.Sprintf("%s!A1:%s%d", c.sheetName, lastCol, len(values))
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", writeRange, err)
	}
	if resp.UpdatedRange != "" {
		return resp.UpdatedRange, nil
	}
	return writeRange, nil
}

func toInterfaces(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// columnName converts a 1-based column index to its A1 letter form.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
