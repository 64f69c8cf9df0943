// Package accounts manages the registered local accounts.
package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// Store is the part of the record store the directory needs.
type Store interface {
	LoadAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccounts(ctx context.Context, fn func([]core.Account) ([]core.Account, error)) error
}

type Directory struct {
	store  Store
	logger *log.Logger
}

func NewDirectory(store Store, logger *log.Logger) *Directory {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentAccounts)
	}
	return &Directory{store: store, logger: logger.WithComponent(log.ComponentAccounts)}
}

func normalize(a core.Account) core.Account {
	a.Name = strings.TrimSpace(a.Name)
	a.Username = strings.TrimSpace(a.Username)
	a.Email = strings.TrimSpace(a.Email)
	return a
}

func indexOf(accounts []core.Account, username string) int {
	for i := range accounts {
		if core.SameUsername(accounts[i].Username, username) {
			return i
		}
	}
	return -1
}

// Register adds candidate unless its username is already taken, compared
// case-insensitively after trimming.
func (d *Directory) Register(ctx context.Context, candidate core.Account) (core.Account, error) {
	candidate = normalize(candidate)
	if err := candidate.Validate(); err != nil {
		return core.Account{}, err
	}
	err := d.store.UpdateAccounts(ctx, func(accounts []core.Account) ([]core.Account, error) {
		if indexOf(accounts, candidate.Username) >= 0 {
			return nil, core.ErrUsernameTaken
		}
		return append(accounts, candidate), nil
	})
	if err != nil {
		return core.Account{}, err
	}
	d.logger.InfoContext(ctx, "Account registered", log.FieldUsername, candidate.Username)
	return candidate, nil
}

// Find looks an account up by username in any letter case.
func (d *Directory) Find(ctx context.Context, username string) (core.Account, error) {
	accounts, err := d.store.LoadAccounts(ctx)
	if err != nil {
		return core.Account{}, err
	}
	i := indexOf(accounts, username)
	if i < 0 {
		return core.Account{}, core.ErrAccountNotFound
	}
	return accounts[i], nil
}

// Exists reports whether the username is taken.
func (d *Directory) Exists(ctx context.Context, username string) (bool, error) {
	_, err := d.Find(ctx, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrAccountNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Verify matches the username case-insensitively and the password exactly.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (d *Directory) Verify(ctx context.Context, username, password string) (core.Account, error) {
	a, err := d.Find(ctx, username)
	if errors.Is(err, core.ErrAccountNotFound) {
		return core.Account{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.Account{}, err
	}
	if subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) != 1 {
		return core.Account{}, core.ErrInvalidCredentials
	}
	return a, nil
}

func (d *Directory) ResetPassword(ctx context.Context, username, newPassword string) error {
	if newPassword == "" {
		return core.ErrEmptyPassword
	}
	err := d.store.UpdateAccounts(ctx, func(accounts []core.Account) ([]core.Account, error) {
		i := indexOf(accounts, username)
		if i < 0 {
			return nil, core.ErrAccountNotFound
		}
		accounts[i].Password = newPassword
		return accounts, nil
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	d.logger.InfoContext(ctx, "Password reset", log.FieldUsername, username)
	return nil
}

// UpdateProfile upserts the account by username. An empty password keeps the
// stored one.
func (d *Directory) UpdateProfile(ctx context.Context, account core.Account) error {
	account = normalize(account)
	if core.UsernameKey(account.Username) == "" {
		return core.ErrEmptyUsername
	}
	return d.store.UpdateAccounts(ctx, func(accounts []core.Account) ([]core.Account, error) {
		i := indexOf(accounts, account.Username)
		if i < 0 {
			if account.Password == "" {
				return nil, core.ErrEmptyPassword
			}
			return append(accounts, account), nil
		}
		account.Username = accounts[i].Username
		if account.Password == "" {
			account.Password = accounts[i].Password
		}
		accounts[i] = account
		return accounts, nil
	})
}
