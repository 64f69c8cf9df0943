package core

import "errors"

// Validation errors.
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidCategory = errors.New("invalid category for transaction type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrNoteTooLong     = errors.New("note too long (max 200 characters)")
	ErrEmptyUsername   = errors.New("empty username")
	ErrEmptyPassword   = errors.New("empty password")
)

// Errors surfaced to the user. None of them is fatal.
var (
	ErrUsernameTaken           = errors.New("username already taken")
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrAccountNotFound         = errors.New("account not found")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrAIUnavailable           = errors.New("ai advisory unavailable")
	ErrExportFailure           = errors.New("export failed")
	ErrStorageAccessDenied     = errors.New("storage access denied")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrNotLoggedIn             = errors.New("not logged in")
	ErrInvalidTransition       = errors.New("action not allowed in current session state")
)
