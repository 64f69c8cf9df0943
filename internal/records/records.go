// Package records persists the ledger, the active session and the account
// list in a key-value namespace.
//
// Missing keys and values that no longer decode are treated as empty and
// logged; backend I/O errors are returned to the caller.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/kv"
	"smartexpense/internal/log"
)

const (
	KeyTransactions = "transactions"
	KeySession      = "currentSession"
	KeyAccounts     = "accounts"

	// SchemaVersion is stamped on every snapshot.
	SchemaVersion = "1.0.0"
)

// Snapshot is a complete point-in-time export of the persisted state.
type Snapshot struct {
	Transactions []core.Transaction `json:"transactions"`
	Accounts     []core.Account     `json:"accounts"`
	CurrentUser  *core.Account      `json:"currentUser"`
	ExportDate   time.Time          `json:"exportDate"`
	Version      string             `json:"version"`
}

type Store struct {
	kv     kv.Store
	logger *log.Logger
	now    func() time.Time

	// mu serialises read-modify-write cycles.
	mu sync.Mutex
}

func New(store kv.Store, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentRecords)
	}
	return &Store{kv: store, logger: logger.WithComponent(log.ComponentRecords), now: time.Now}
}

// Ping reports backend readiness when the backend supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.kv.(kv.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func load[T any](ctx context.Context, s *Store, key string) (T, error) {
	var zero T
	b, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		s.logger.WarnContext(ctx, "Discarding unreadable record", "key", key, "error", err)
		return zero, nil
	}
	return v, nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, b); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadTransactions returns the ledger in stored order (newest first).
func (s *Store) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := load[[]core.Transaction](ctx, s, KeyTransactions)
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, err
}

func (s *Store) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTransactions(ctx, txs)
}

func (s *Store) saveTransactions(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return s.save(ctx, KeyTransactions, txs)
}

// UpdateTransactions loads the ledger, applies fn and saves the result as
// one step. Nothing is written when fn returns an error.
func (s *Store) UpdateTransactions(ctx context.Context, fn func([]core.Transaction) ([]core.Transaction, error)) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.LoadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	txs, err = fn(txs)
	if err != nil {
		return nil, err
	}
	if err := s.saveTransactions(ctx, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// LoadSession returns the persisted session account, or nil when logged out.
func (s *Store) LoadSession(ctx context.Context) (*core.Account, error) {
	return load[*core.Account](ctx, s, KeySession)
}

// SaveSession persists a copy of a; nil clears the session.
func (s *Store) SaveSession(ctx context.Context, a *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, KeySession, a)
}

func (s *Store) LoadAccounts(ctx context.Context) ([]core.Account, error) {
	accounts, err := load[[]core.Account](ctx, s, KeyAccounts)
	if accounts == nil {
		accounts = []core.Account{}
	}
	return accounts, err
}

// UpdateAccounts is the account-list counterpart of UpdateTransactions.
func (s *Store) UpdateAccounts(ctx context.Context, fn func([]core.Account) ([]core.Account, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts, err := s.LoadAccounts(ctx)
	if err != nil {
		return err
	}
	accounts, err = fn(accounts)
	if err != nil {
		return err
	}
	return s.save(ctx, KeyAccounts, accounts)
}

// UpsertAccount replaces the account with the same case-insensitive username,
// or appends a when there is none.
func (s *Store) UpsertAccount(ctx context.Context, a core.Account) error {
	return s.UpdateAccounts(ctx, func(accounts []core.Account) ([]core.Account, error) {
		for i := range accounts {
			if core.SameUsername(accounts[i].Username, a.Username) {
				accounts[i] = a
				return accounts, nil
			}
		}
		return append(accounts, a), nil
	})
}

func (s *Store) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	txs, err := s.LoadTransactions(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	accounts, err := s.LoadAccounts(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	current, err := s.LoadSession(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Transactions: txs,
		Accounts:     accounts,
		CurrentUser:  current,
		ExportDate:   s.now().UTC(),
		Version:      SchemaVersion,
	}, nil
}
