package core

import "time"

// Bucketer maps a transaction to the period key it is grouped under.
type Bucketer func(Transaction) string

// MonthBucketer groups by short month name ("Jan"), ignoring the year.
func MonthBucketer(t Transaction) string {
	return t.Date.Month().String()[:3]
}

// YearMonthBucketer groups by "2006-01"; its labels sort chronologically.
func YearMonthBucketer(t Transaction) string {
	return t.Date.Format("2006-01")
}

// ComputeStats reduces the transaction set to its summary figures in one pass.
func ComputeStats(txs []Transaction) FinancialStats {
	var s FinancialStats
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	if s.TotalIncome.IsPositive() {
		ratio := s.TotalExpense.Div(s.TotalIncome.Decimal).Mul(hundred)
		s.ExpenseRatio = ratio.InexactFloat64()
	}
	return s
}

// AggregateByCategory sums the amounts of type t per category. Categories
// without transactions are absent from the result.
func AggregateByCategory(txs []Transaction, t TransactionType) map[Category]Money {
	out := make(map[Category]Money)
	for _, tx := range txs {
		if tx.Type != t {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out
}

// CategoryTotals is AggregateByCategory as a slice in first-seen order, with chart colors.
func CategoryTotals(txs []Transaction, t TransactionType) []CategoryAmount {
	var out []CategoryAmount
	index := make(map[Category]int)
	for _, tx := range txs {
		if tx.Type != t {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			index[tx.Category] = len(out)
			out = append(out, CategoryAmount{Category: tx.Category, Amount: tx.Amount, Color: tx.Category.Color()})
			continue
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}

// AggregateByPeriod sums income and expense per bucket. Buckets appear in the
// order they are first seen in txs; callers wanting chronological order must sort.
func AggregateByPeriod(txs []Transaction, bucket Bucketer) []PeriodAmount {
	var out []PeriodAmount
	index := make(map[string]int)
	for _, tx := range txs {
		key := bucket(tx)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, PeriodAmount{Period: key})
		}
		switch tx.Type {
		case Income:
			out[i].Income = out[i].Income.Add(tx.Amount)
		case Expense:
			out[i].Expense = out[i].Expense.Add(tx.Amount)
		}
	}
	return out
}

// Recent returns up to n transactions from the head of txs, which holds the newest entries.
func Recent(txs []Transaction, n int) []Transaction {
	if n > len(txs) {
		n = len(txs)
	}
	return txs[:n]
}

// Today is the current calendar date in UTC.
func Today(now time.Time) Date {
	now = now.UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}
