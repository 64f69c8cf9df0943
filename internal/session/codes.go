package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// CodeIssuer produces the code a pending signup must echo back.
type CodeIssuer interface {
	Issue(ctx context.Context, pending core.Account) (string, error)
}

// FixedCode always issues the same code. It is the demo behaviour.
type FixedCode string

func (c FixedCode) Issue(context.Context, core.Account) (string, error) {
	return string(c), nil
}

// RandomCode issues a fresh 6-digit code and hands it to Deliver, which
// defaults to writing it to the log.
type RandomCode struct {
	Logger  *log.Logger
	Deliver func(ctx context.Context, pending core.Account, code string) error
}

func (r RandomCode) Issue(ctx context.Context, pending core.Account) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	deliver := r.Deliver
	if deliver == nil {
		deliver = r.logCode
	}
	if err := deliver(ctx, pending, code); err != nil {
		return "", fmt.Errorf("deliver verification code: %w", err)
	}
	return code, nil
}

func (r RandomCode) logCode(ctx context.Context, pending core.Account, code string) error {
	logger := r.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentSession)
	}
	logger.InfoContext(ctx, "Verification code issued",
		log.FieldUsername, pending.Username,
		"email", pending.Email,
		"code", code)
	return nil
}

// NewCodeIssuer picks the issuer for the configured mode ("fixed" or "random").
func NewCodeIssuer(mode, fixed string, logger *log.Logger) CodeIssuer {
	if mode == "random" {
		return RandomCode{Logger: logger}
	}
	return FixedCode(fixed)
}
