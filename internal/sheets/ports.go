// Package sheets defines the spreadsheet port used by exports.
package sheets

import "context"

// Ports for outbound adapters.
type (
	// TableWriter replaces the contents of one tab with a header row followed by rows.
	TableWriter interface {
		ReplaceTable(ctx context.Context, header []string, rows [][]string) (rangeRef string, err error)
	}
)
