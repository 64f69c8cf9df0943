package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// MaxNoteLength bounds the free-text note of a transaction.
const MaxNoteLength = 200

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is immutable once stored; it can only be deleted by ID.
	Transaction struct {
		ID        string          `json:"id"`
		Amount    Money           `json:"amount"`
		Type      TransactionType `json:"type"`
		Category  Category        `json:"category"`
		Date      Date            `json:"date"`
		CreatedAt time.Time       `json:"createdAt"`
		Note      string          `json:"note"`
	}

	// TransactionDraft is what a user submits; ID and CreatedAt are assigned on creation.
	TransactionDraft struct {
		Amount   Money
		Type     TransactionType
		Category Category
		Date     Date
		Note     string
	}

	Account struct {
		Name      string `json:"name"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password,omitempty"`
		AvatarURL string `json:"avatarUrl,omitempty"` // data URI
	}
)

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts INCOME/EXPENSE in any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD and, for data written by older clients, full RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d TransactionDraft) Validate() error {
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if !d.Type.IsValid() {
		return ErrInvalidType
	}
	if !d.Category.ValidFor(d.Type) {
		return ErrInvalidCategory
	}
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(d.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("transaction id cannot be empty")
	}
	return TransactionDraft{
		Amount:   t.Amount,
		Type:     t.Type,
		Category: t.Category,
		Date:     t.Date,
		Note:     t.Note,
	}.Validate()
}

// UsernameKey folds a username into the form used for uniqueness checks and lookups.
func UsernameKey(username string) string {
	// cases.Caser is stateful, so one is built per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(username))
}

// SameUsername reports whether two usernames identify the same account.
func SameUsername(a, b string) bool {
	return UsernameKey(a) == UsernameKey(b)
}

func (a Account) Validate() error {
	if UsernameKey(a.Username) == "" {
		return ErrEmptyUsername
	}
	if a.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// Public returns a copy without the stored password, suitable for responses.
func (a Account) Public() Account {
	a.Password = ""
	return a
}
