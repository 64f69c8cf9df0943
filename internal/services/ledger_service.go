package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/metrics"
)

// RecentCount is how many of the newest transactions the dashboard shows.
const RecentCount = 5

// Ledger is the transaction half of the record store.
type Ledger interface {
	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
	UpdateTransactions(ctx context.Context, fn func([]core.Transaction) ([]core.Transaction, error)) ([]core.Transaction, error)
}

// TransactionInput is a transaction as typed into the entry form.
type TransactionInput struct {
	Amount   string
	Type     string
	Category string
	Date     string
	Note     string
}

// Dashboard bundles everything the overview screen renders.
type Dashboard struct {
	Stats             core.FinancialStats   `json:"stats"`
	SavingsRate       *float64              `json:"savingsRate,omitempty"`
	ExpenseByCategory []core.CategoryAmount `json:"expenseByCategory"`
	IncomeByCategory  []core.CategoryAmount `json:"incomeByCategory"`
	Monthly           []core.PeriodAmount   `json:"monthly"`
	Recent            []core.Transaction    `json:"recent"`
	TransactionCount  int                   `json:"transactionCount"`
}

// LedgerService adds, removes and summarises transactions.
type LedgerService struct {
	store  Ledger
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

func NewLedgerService(store Ledger, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentLedger)
	}
	return &LedgerService{
		store:  store,
		logger: logger.WithComponent(log.ComponentLedger),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ParseDraft converts form input. Type defaults to EXPENSE and date to today.
func ParseDraft(in TransactionInput, today core.Date) (core.TransactionDraft, error) {
	var d core.TransactionDraft

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return d, err
	}
	d.Amount = amount

	d.Type = core.Expense
	if strings.TrimSpace(in.Type) != "" {
		if d.Type, err = core.ParseTransactionType(in.Type); err != nil {
			return d, err
		}
	}

	d.Category = core.Category(strings.TrimSpace(in.Category))

	d.Date = today
	if strings.TrimSpace(in.Date) != "" {
		if d.Date, err = core.ParseDate(in.Date); err != nil {
			return d, err
		}
	}

	d.Note = strings.TrimSpace(in.Note)
	return d, d.Validate()
}

// AddInput parses form input and adds the resulting transaction.
func (s *LedgerService) AddInput(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	draft, err := ParseDraft(in, core.Today(s.now()))
	if err != nil {
		return core.Transaction{}, err
	}
	return s.Add(ctx, draft)
}

// Add assigns an id and creation time and puts the transaction at the head of the ledger.
func (s *LedgerService) Add(ctx context.Context, draft core.TransactionDraft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:        s.newID(),
		Amount:    draft.Amount,
		Type:      draft.Type,
		Category:  draft.Category,
		Date:      draft.Date,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		Note:      draft.Note,
	}

	txs, err := s.store.UpdateTransactions(ctx, func(txs []core.Transaction) ([]core.Transaction, error) {
		out := make([]core.Transaction, 0, len(txs)+1)
		out = append(out, tx)
		return append(out, txs...), nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	metrics.LedgerOperations.WithLabelValues(log.OpCreate, string(tx.Type)).Inc()
	metrics.LedgerSize.Set(float64(len(txs)))
	s.logger.InfoContext(ctx, "Transaction added", log.NewFields().
		WithTransaction(tx.ID, string(tx.Type), string(tx.Category), tx.Amount.String()).
		WithOperation(log.OpCreate).
		ToSlice()...)
	return tx, nil
}

// Delete removes exactly the transaction with the given id, keeping the order of the rest.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	var removed core.Transaction
	txs, err := s.store.UpdateTransactions(ctx, func(txs []core.Transaction) ([]core.Transaction, error) {
		for i := range txs {
			if txs[i].ID == id {
				removed = txs[i]
				return append(txs[:i:i], txs[i+1:]...), nil
			}
		}
		return nil, core.ErrTransactionNotFound
	})
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	metrics.LedgerOperations.WithLabelValues(log.OpDelete, string(removed.Type)).Inc()
	metrics.LedgerSize.Set(float64(len(txs)))
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id, log.FieldOperation, log.OpDelete)
	return nil
}

func (s *LedgerService) List(ctx context.Context) ([]core.Transaction, error) {
	return s.store.LoadTransactions(ctx)
}

func (s *LedgerService) Stats(ctx context.Context) (core.FinancialStats, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return core.FinancialStats{}, err
	}
	return core.ComputeStats(txs), nil
}

// CategoryBreakdown sums one transaction type per category in first-seen order.
func (s *LedgerService) CategoryBreakdown(ctx context.Context, t core.TransactionType) ([]core.CategoryAmount, error) {
	if !t.IsValid() {
		return nil, core.ErrInvalidType
	}
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.CategoryTotals(txs, t), nil
}

func (s *LedgerService) PeriodSeries(ctx context.Context, bucket core.Bucketer) ([]core.PeriodAmount, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.AggregateByPeriod(txs, bucket), nil
}

// Dashboard recomputes every summary from the full ledger.
func (s *LedgerService) Dashboard(ctx context.Context) (Dashboard, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{
		Stats:             core.ComputeStats(txs),
		ExpenseByCategory: core.CategoryTotals(txs, core.Expense),
		IncomeByCategory:  core.CategoryTotals(txs, core.Income),
		Monthly:           core.AggregateByPeriod(txs, core.MonthBucketer),
		Recent:            core.Recent(txs, RecentCount),
		TransactionCount:  len(txs),
	}
	if rate, ok := d.Stats.SavingsRate(); ok {
		d.SavingsRate = &rate
	}
	return d, nil
}
