// Package export writes the ledger as CSV and pushes it to a spreadsheet.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/metrics"
	"smartexpense/internal/sheets"
)

// Filename is the suggested name of a CSV download.
const Filename = "ExpenseTracker_Export.csv"

// Header lists the exported columns in order.
var Header = []string{"date", "type", "category", "amount", "note"}

// Record renders one transaction in Header order.
func Record(tx core.Transaction) []string {
	return []string{
		tx.Date.String(),
		string(tx.Type),
		string(tx.Category),
		tx.Amount.String(),
		tx.Note,
	}
}

func Rows(txs []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, Record(tx))
	}
	return rows
}

// WriteCSV writes Header followed by one line per transaction, in ledger order.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("%w: %w", core.ErrExportFailure, err)
	}
	if err := cw.WriteAll(Rows(txs)); err != nil {
		return fmt.Errorf("%w: %w", core.ErrExportFailure, err)
	}
	return nil
}

// Exporter runs exports with logging and metrics. The spreadsheet target is optional.
type Exporter struct {
	sheet  sheets.TableWriter
	logger *log.Logger
}

func New(sheet sheets.TableWriter, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentExport)
	}
	return &Exporter{sheet: sheet, logger: logger.WithComponent(log.ComponentExport)}
}

func (e *Exporter) SheetsEnabled() bool { return e.sheet != nil }

func (e *Exporter) CSV(ctx context.Context, w io.Writer, txs []core.Transaction) error {
	err := WriteCSV(w, txs)
	metrics.Exports.WithLabelValues("csv", metrics.Result(err)).Inc()
	if err != nil {
		e.logger.ErrorContext(ctx, "CSV export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		return err
	}
	e.logger.InfoContext(ctx, "CSV export written", log.FieldOperation, log.OpExport, "rows", len(txs))
	return nil
}

// ToSheets replaces the configured tab with the ledger and returns the written range.
func (e *Exporter) ToSheets(ctx context.Context, txs []core.Transaction) (string, error) {
	if e.sheet == nil {
		return "", fmt.Errorf("%w: spreadsheet export is not configured", core.ErrExportFailure)
	}
	ref, err := e.sheet.ReplaceTable(ctx, Header, Rows(txs))
	metrics.Exports.WithLabelValues("sheets", metrics.Result(err)).Inc()
	if err != nil {
		e.logger.ErrorContext(ctx, "Spreadsheet export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		return "", fmt.Errorf("%w: %w", core.ErrExportFailure, err)
	}
	e.logger.InfoContext(ctx, "Spreadsheet export written", log.FieldOperation, log.OpExport, "range", ref, "rows", len(txs))
	return ref, nil
}
