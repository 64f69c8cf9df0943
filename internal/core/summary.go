package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"name"`
	Amount   Money    `json:"value"`
	Color    string   `json:"color"`
}

// PeriodAmount holds income and expense sums for one period bucket.
type PeriodAmount struct {
	Period  string `json:"name"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// FinancialStats is derived from the full transaction set and never stored.
type FinancialStats struct {
	TotalIncome  Money   `json:"totalIncome"`
	TotalExpense Money   `json:"totalExpense"`
	Balance      Money   `json:"balance"`
	ExpenseRatio float64 `json:"expenseRatio"` // percent of income spent
}

// SavingsRate is the share of income not spent, in percent. It is undefined without income.
func (s FinancialStats) SavingsRate() (float64, bool) {
	if !s.TotalIncome.IsPositive() {
		return 0, false
	}
	return 100 - s.ExpenseRatio, true
}
