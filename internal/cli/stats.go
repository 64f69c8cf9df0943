package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"smartexpense/internal/core"
)

var (
	statsJSON       bool
	statsByCategory bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics of the stored ledger",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the dashboard as JSON")
	statsCmd.Flags().BoolVar(&statsByCategory, "by-category", false, "also print per-category totals")
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	app, err := NewApp(cmd.Context(), cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	d, err := app.Ledger.Dashboard(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Transactions:\t%d\n", d.TransactionCount)
	fmt.Fprintf(tw, "Total income:\t%s\n", d.Stats.TotalIncome.StringFixed(2))
	fmt.Fprintf(tw, "Total expense:\t%s\n", d.Stats.TotalExpense.StringFixed(2))
	fmt.Fprintf(tw, "Balance:\t%s\n", d.Stats.Balance.StringFixed(2))
	fmt.Fprintf(tw, "Expense ratio:\t%.1f%%\n", d.Stats.ExpenseRatio)
	if d.SavingsRate != nil {
		fmt.Fprintf(tw, "Savings rate:\t%.1f%%\n", *d.SavingsRate)
	} else {
		fmt.Fprintf(tw, "Savings rate:\tn/a\n")
	}
	if statsByCategory {
		printCategories(tw, "Expenses", d.ExpenseByCategory)
		printCategories(tw, "Income", d.IncomeByCategory)
	}
	return tw.Flush()
}

func printCategories(w io.Writer, title string, rows []core.CategoryAmount) {
	fmt.Fprintf(w, "\n%s by category:\n", title)
	if len(rows) == 0 {
		fmt.Fprintf(w, "  (none)\n")
		return
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s\t%s\n", r.Category, r.Amount.StringFixed(2))
	}
}
