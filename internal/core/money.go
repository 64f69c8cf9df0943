// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for every amount in the ledger and
// the parser for user-entered amounts.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. It serializes as a bare JSON number.
type Money struct {
	decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromInt builds a whole-unit amount.
func MoneyFromInt(v int64) Money {
	return Money{Decimal: decimal.NewFromInt(v)}
}

func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) Sub(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}

func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	m.Decimal = d
	return nil
}

// ParseAmount converts a user-entered decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to cents. Signs, exponents and zero amounts are rejected. Thousands
// separators are not accepted: every comma is read as a decimal point, so
// "1,000.50" is invalid.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34
//	ParseAmount("12,345")   -> 12.35
//	ParseAmount("-1")       -> ErrInvalidAmount
//	ParseAmount("1,000.50") -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	if s == "." {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Decimal: d.Round(2)}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}
