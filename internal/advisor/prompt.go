package advisor

import (
	"fmt"
	"strings"

	"smartexpense/internal/core"
)

// RecentActivityCount is how many of the newest transactions go into the prompt.
const RecentActivityCount = 5

// WarningThreshold is the expense ratio, in percent, above which the prompt
// demands a warning.
const WarningThreshold = 80.0

// FormatActivity renders transactions as "{date}: {type} of ${amount} in {category}", comma separated.
func FormatActivity(txs []core.Transaction) string {
	parts := make([]string, 0, len(txs))
	for _, t := range txs {
		parts = append(parts, fmt.Sprintf("%s: %s of $%s in %s", t.Date, t.Type, t.Amount, t.Category))
	}
	return strings.Join(parts, ", ")
}

// BuildPrompt embeds the stats and the most recent activity in the advisory request.
func BuildPrompt(txs []core.Transaction, stats core.FinancialStats) string {
	var b strings.Builder
	b.WriteString("Act as a high-end financial advisor. Given the user's current financial status:\n")
	fmt.Fprintf(&b, "- Total Income: $%s\n", stats.TotalIncome)
	fmt.Fprintf(&b, "- Total Expense: $%s\n", stats.TotalExpense)
	fmt.Fprintf(&b, "- Current Balance: $%s\n", stats.Balance)
	fmt.Fprintf(&b, "- Recent Activity: %s\n\n", FormatActivity(core.Recent(txs, RecentActivityCount)))
	b.WriteString("Provide 3 concise, highly actionable financial tips for this user.\n")
	b.WriteString("Keep it professional yet encouraging. Format as a bulleted list.\n")
	b.WriteString("If expenses are > 80% of income, add a serious but constructive warning.\n")
	if stats.ExpenseRatio > WarningThreshold {
		fmt.Fprintf(&b, "Expenses are currently %.1f%% of income, so the warning is required.\n", stats.ExpenseRatio)
	}
	return b.String()
}
