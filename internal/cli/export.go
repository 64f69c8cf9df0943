package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"smartexpense/internal/core"
)

var (
	exportOut    string
	exportSheets bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger as CSV",
	Long: `Write the ledger as CSV to stdout, or to --out. With --sheets the ledger
replaces the configured Google Sheets tab instead.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write CSV to this file instead of stdout")
	exportCmd.Flags().BoolVar(&exportSheets, "sheets", false, "push to Google Sheets instead of writing CSV")
}

func runExport(cmd *cobra.Command, _ []string) (err error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	app, err := NewApp(cmd.Context(), cfg, logger, appOptions{sheets: exportSheets})
	if err != nil {
		return err
	}
	defer app.Close()

	txs, err := app.Ledger.List(cmd.Context())
	if err != nil {
		return err
	}

	if exportSheets {
		if !app.Exporter.SheetsEnabled() {
			return fmt.Errorf("%w: GOOGLE_SPREADSHEET_ID is not set", core.ErrExportFailure)
		}
		ref, err := app.Exporter.ToSheets(cmd.Context(), txs)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(txs), ref)
		return nil
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return app.Exporter.CSV(cmd.Context(), w, txs)
}
