// Package session drives the login, signup and password-recovery state machine.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/metrics"
)

type State string

const (
	LoggedOut                State = "LOGGED_OUT"
	AwaitingVerification     State = "AWAITING_VERIFICATION"
	LoggedIn                 State = "LOGGED_IN"
	AwaitingRecoveryUsername State = "AWAITING_RECOVERY_USERNAME"
	AwaitingNewPassword      State = "AWAITING_NEW_PASSWORD"
)

// Snapshot is the externally visible session state. Account never carries a password.
type Snapshot struct {
	State           State         `json:"state"`
	Account         *core.Account `json:"account,omitempty"`
	PendingUsername string        `json:"pendingUsername,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// Directory is the account lookup the manager depends on.
type Directory interface {
	Register(ctx context.Context, candidate core.Account) (core.Account, error)
	Verify(ctx context.Context, username, password string) (core.Account, error)
	Find(ctx context.Context, username string) (core.Account, error)
	Exists(ctx context.Context, username string) (bool, error)
	ResetPassword(ctx context.Context, username, newPassword string) error
	UpdateProfile(ctx context.Context, account core.Account) error
}

// Persistence stores a copy of the logged-in account.
type Persistence interface {
	LoadSession(ctx context.Context) (*core.Account, error)
	SaveSession(ctx context.Context, a *core.Account) error
}

// Profile holds the user-editable account fields.
type Profile struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

type Manager struct {
	dir    Directory
	store  Persistence
	codes  CodeIssuer
	logger *log.Logger

	mu           sync.Mutex
	state        State
	current      *core.Account
	pending      *core.Account
	expectedCode string
	recoveryUser string
	lastErr      error
}

// NewManager restores a persisted session, starting LoggedIn when one exists.
func NewManager(ctx context.Context, dir Directory, store Persistence, codes CodeIssuer, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentSession)
	}
	m := &Manager{
		dir:    dir,
		store:  store,
		codes:  codes,
		logger: logger.WithComponent(log.ComponentSession),
		state:  LoggedOut,
	}
	current, err := store.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if current != nil && core.UsernameKey(current.Username) != "" {
		m.current = current
		m.state = LoggedIn
		m.logger.InfoContext(ctx, "Session restored", log.FieldUsername, current.Username)
	}
	return m, nil
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) snapshot() Snapshot {
	s := Snapshot{State: m.state}
	switch m.state {
	case LoggedIn:
		pub := m.current.Public()
		s.Account = &pub
	case AwaitingVerification:
		s.PendingUsername = m.pending.Username
	case AwaitingNewPassword:
		s.PendingUsername = m.recoveryUser
	}
	if m.lastErr != nil {
		s.Error = m.lastErr.Error()
	}
	return s
}

// Current returns the logged-in account.
func (m *Manager) Current() (core.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != LoggedIn {
		return core.Account{}, false
	}
	return *m.current, true
}

func (m *Manager) require(states ...State) error {
	for _, s := range states {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrInvalidTransition, m.state)
}

func (m *Manager) transition(ctx context.Context, to State) {
	from := m.state
	m.state = to
	m.lastErr = nil
	metrics.SessionTransitions.WithLabelValues(string(from), string(to)).Inc()
	m.logger.InfoContext(ctx, "Session transition", log.NewFields().WithTransition(string(from), string(to)).ToSlice()...)
}

// fail records err on the current state without leaving it.
func (m *Manager) fail(ctx context.Context, reason string, err error) (Snapshot, error) {
	m.lastErr = err
	metrics.AuthFailures.WithLabelValues(reason).Inc()
	m.logger.WarnContext(ctx, "Session action rejected", "state", m.state, "reason", reason, log.FieldError, err)
	return m.snapshot(), err
}

// Login moves LoggedOut to LoggedIn when the directory verifies the credentials.
func (m *Manager) Login(ctx context.Context, username, password string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.require(LoggedOut); err != nil {
		return m.snapshot(), err
	}
	a, err := m.dir.Verify(ctx, username, password)
	if err != nil {
		return m.fail(ctx, "invalid_credentials", err)
	}
	if err := m.store.SaveSession(ctx, &a); err != nil {
		return m.snapshot(), err
	}
	m.current = &a
	m.transition(ctx, LoggedIn)
	return m.snapshot(), nil
}

// Signup holds the candidate account until its verification code is confirmed.
func (m *Manager) Signup(ctx context.Context, candidate core.Account) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.require(LoggedOut); err != nil {
		return m.snapshot(), err
	}
	candidate.Username = strings.TrimSpace(candidate.Username)
	if err := candidate.Validate(); err != nil {
		return m.fail(ctx, "invalid_account", err)
	}
	taken, err := m.dir.Exists(ctx, candidate.Username)
	if err != nil {
		return m.snapshot(), err
	}
	if taken {
		return m.fail(ctx, "username_taken", core.ErrUsernameTaken)
	}
	code, err := m.codes.Issue(ctx, candidate)
	if err != nil {
		return m.snapshot(), err
	}
	m.pending = &candidate
	m.expectedCode = code
	m.transition(ctx, AwaitingVerification)
	return m.snapshot(), nil
}

// SubmitCode registers the pending account and logs it in when code matches.
// A wrong code keeps the machine in AwaitingVerification with the error set.
func (m *Manager) SubmitCode(ctx context.Context, code string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.require(AwaitingVerification); err != nil {
		return m.snapshot(), err
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(m.expectedCode)) != 1 {
		return m.fail(ctx, "invalid_code", core.ErrInvalidVerificationCode)
	}
	a, err := m.dir.Register(ctx, *m.pending)
	if errors.Is(err, core.ErrUsernameTaken) {
		// Someone else claimed the name while the code was outstanding.
		m.clearPending()
		m.transition(ctx, LoggedOut)
		return m.fail(ctx, "username_taken", err)
	}
	if err != nil {
		return m.snapshot(), err
	}
	if err := m.store.SaveSession(ctx, &a); err != nil {
		return m.snapshot(), err
	}
	m.clearPending()
	m.current = &a
	m.transition(ctx, LoggedIn)
	return m.snapshot(), nil
}

// BeginRecovery starts the forgot-password flow.
func (m *Manager) BeginRecovery(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.require(LoggedOut); err != nil {
		return m.snapshot(), err
	}
	m.transition(ctx, AwaitingRecoveryUsername)
	return m.snapshot(), nil
}

// SubmitRecoveryUsername advances to AwaitingNewPassword when the account exists.
func (m *Manager) SubmitRecoveryUsername(ctx context.Context, username string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.require(AwaitingRecoveryUsername); err != nil {
		return m.snapshot(), err
	}
	a, err := m.dir.Find(ctx, username)
	if errors.Is(err, core.ErrAccountNotFound) {
		return m.fail(ctx, "account_not_found", err)
	}
	if err != nil {
		return m.snapshot(), err
	}
	m.recoveryUser = a.Username
	m.transition(ctx, AwaitingNewPassword)
	return m.snapshot(), nil
}

// SubmitNewPassword persists the new password and returns to LoggedOut.
func (m *Manager) SubmitNewPassword(ctx context.Context, password string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.require(AwaitingNewPassword); err != nil {
		return m.snapshot(), err
	}
	if err := m.dir.ResetPassword(ctx, m.recoveryUser, password); err != nil {
		if errors.Is(err, core.ErrEmptyPassword) || errors.Is(err, core.ErrAccountNotFound) {
			return m.fail(ctx, "reset_rejected", err)
		}
		return m.snapshot(), err
	}
	m.recoveryUser = ""
	m.transition(ctx, LoggedOut)
	return m.snapshot(), nil
}

// Cancel abandons a pending signup or recovery flow.
func (m *Manager) Cancel(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case LoggedOut:
		m.lastErr = nil
	case AwaitingVerification, AwaitingRecoveryUsername, AwaitingNewPassword:
		m.clearPending()
		m.recoveryUser = ""
		m.transition(ctx, LoggedOut)
	default:
		return m.snapshot(), m.require(LoggedOut, AwaitingVerification, AwaitingRecoveryUsername, AwaitingNewPassword)
	}
	return m.snapshot(), nil
}

// Logout clears the session only; accounts and the ledger are untouched.
func (m *Manager) Logout(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.require(LoggedIn); err != nil {
		return m.snapshot(), err
	}
	if err := m.store.SaveSession(ctx, nil); err != nil {
		return m.snapshot(), err
	}
	m.current = nil
	m.transition(ctx, LoggedOut)
	return m.snapshot(), nil
}

// UpdateProfile edits the logged-in account and re-persists both the
// directory entry and the session copy.
func (m *Manager) UpdateProfile(ctx context.Context, p Profile) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != LoggedIn {
		return m.snapshot(), core.ErrNotLoggedIn
	}
	updated := *m.current
	if name := strings.TrimSpace(p.Name); name != "" {
		updated.Name = name
	}
	if email := strings.TrimSpace(p.Email); email != "" {
		updated.Email = email
	}
	if p.AvatarURL != "" {
		updated.AvatarURL = p.AvatarURL
	}
	// Without a password the directory keeps the stored one.
	if err := m.dir.UpdateProfile(ctx, updated.Public()); err != nil {
		return m.snapshot(), err
	}
	if err := m.store.SaveSession(ctx, &updated); err != nil {
		return m.snapshot(), err
	}
	m.current = &updated
	m.logger.InfoContext(ctx, "Profile updated", log.FieldUsername, updated.Username)
	return m.snapshot(), nil
}

func (m *Manager) clearPending() {
	m.pending = nil
	m.expectedCode = ""
}
