package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartexpense/internal/core"
	"smartexpense/internal/kv/memory"
	"smartexpense/internal/records"
)

func newService(t *testing.T) (*LedgerService, *records.Store) {
	t.Helper()
	rec := records.New(memory.New(), nil)
	svc := NewLedgerService(rec, nil)
	svc.now = func() time.Time { return time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC) }
	n := 0
	svc.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return svc, rec
}

func TestParseDraftDefaults(t *testing.T) {
	today := core.NewDate(2025, 7, 14)
	d, err := ParseDraft(TransactionInput{Amount: "12,50", Category: "Food"}, today)
	require.NoError(t, err)
	assert.Equal(t, core.Expense, d.Type)
	assert.Equal(t, "2025-07-14", d.Date.String())
	assert.Equal(t, "12.5", d.Amount.String())

	d, err = ParseDraft(TransactionInput{Amount: "1000", Type: "income", Category: "Salary", Date: "2025-07-01", Note: "  July  "}, today)
	require.NoError(t, err)
	assert.Equal(t, core.Income, d.Type)
	assert.Equal(t, "July", d.Note)
}

func TestParseDraftErrors(t *testing.T) {
	today := core.NewDate(2025, 7, 14)
	cases := []struct {
		in   TransactionInput
		want error
	}{
		{TransactionInput{Amount: "0", Category: "Food"}, core.ErrInvalidAmount},
		{TransactionInput{Amount: "5", Type: "gift", Category: "Food"}, core.ErrInvalidType},
		{TransactionInput{Amount: "5", Category: "Salary"}, core.ErrInvalidCategory},
		{TransactionInput{Amount: "5", Category: "Food", Date: "14/07/2025"}, core.ErrInvalidDate},
	}
	for _, tc := range cases {
		_, err := ParseDraft(tc.in, today)
		assert.ErrorIs(t, err, tc.want, "%+v", tc.in)
	}
}

func TestAddPrependsAndStamps(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	first, err := svc.AddInput(ctx, TransactionInput{Amount: "1000", Type: "INCOME", Category: "Salary"})
	require.NoError(t, err)
	second, err := svc.AddInput(ctx, TransactionInput{Amount: "850", Category: "Rent"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC), first.CreatedAt)

	txs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID, "newest first")
	assert.Equal(t, first.ID, txs[1].ID)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "150", stats.Balance.String())
	assert.Equal(t, 85.0, stats.ExpenseRatio)
}

func TestAddRejectsInvalidDraft(t *testing.T) {
	svc, rec := newService(t)
	_, err := svc.Add(context.Background(), core.TransactionDraft{Amount: core.MoneyFromInt(5), Type: core.Income, Category: core.Rent, Date: core.NewDate(2025, 1, 1)})
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
	txs, err := rec.LoadTransactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	for i := 0; i < 4; i++ {
		_, err := svc.AddInput(ctx, TransactionInput{Amount: "10", Category: "Food"})
		require.NoError(t, err)
	}
	before, err := svc.List(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "id-2"))
	after, err := svc.List(ctx)
	require.NoError(t, err)

	var want []string
	for _, tx := range before {
		if tx.ID != "id-2" {
			want = append(want, tx.ID)
		}
	}
	var got []string
	for _, tx := range after {
		got = append(got, tx.ID)
	}
	assert.Equal(t, want, got)

	assert.ErrorIs(t, svc.Delete(ctx, "id-2"), core.ErrTransactionNotFound)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Nil(t, d.SavingsRate)
	assert.Zero(t, d.TransactionCount)

	inputs := []TransactionInput{
		{Amount: "1000", Type: "INCOME", Category: "Salary", Date: "2025-06-01"},
		{Amount: "200", Category: "Food", Date: "2025-06-03"},
		{Amount: "50", Category: "Transport", Date: "2025-07-02"},
		{Amount: "25", Category: "Food", Date: "2025-07-05"},
	}
	for _, in := range inputs {
		_, err := svc.AddInput(ctx, in)
		require.NoError(t, err)
	}

	d, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, d.TransactionCount)
	require.NotNil(t, d.SavingsRate)
	assert.InDelta(t, 72.5, *d.SavingsRate, 1e-9)

	require.Len(t, d.ExpenseByCategory, 2)
	// ledger is newest first, so Food (added last) is seen first
	assert.Equal(t, core.Food, d.ExpenseByCategory[0].Category)
	assert.Equal(t, "225", d.ExpenseByCategory[0].Amount.String())

	require.Len(t, d.Monthly, 2)
	assert.Equal(t, "Jul", d.Monthly[0].Period)
	assert.Equal(t, "Jun", d.Monthly[1].Period)
	assert.Len(t, d.Recent, 4)

	_, err = svc.CategoryBreakdown(ctx, "BOGUS")
	assert.ErrorIs(t, err, core.ErrInvalidType)
	series, err := svc.PeriodSeries(ctx, core.YearMonthBucketer)
	require.NoError(t, err)
	assert.Equal(t, "2025-07", series[0].Period)
}
