package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// MaxTitleLength bounds the display title of a transaction.
const MaxTitleLength = 200

type (
	TransactionType string

	// Transaction is a dated income or expense record. Amount is always
	// positive; direction is carried by Type.
	Transaction struct {
		ID       int64 // Assigned by the store on insert
		Title    string
		Amount   Money
		Type     TransactionType
		Category string
		Date     time.Time
		Notes    string
	}
)

// ParseTransactionType accepts "income"/"expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", &ValidationError{Field: "type", Err: ErrInvalidType}
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// Signed returns the amount in cents with expenses negated.
func (t Transaction) Signed() int64 {
	if t.Type == Expense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

// Validate checks the transaction before it reaches a store.
func (t Transaction) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return &ValidationError{Field: "title", Err: ErrEmptyTitle}
	}
	if len(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Err: ErrTitleTooLong}
	}
	if err := t.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if !t.Type.IsValid() {
		return &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	if _, err := ParseCategory(t.Type, t.Category); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Err: ErrZeroDate}
	}
	return nil
}

// Normalize trims free-text fields, canonicalizes the category spelling and
// truncates the date to millisecond precision, the storage resolution.
func (t Transaction) Normalize() Transaction {
	t.Title = strings.TrimSpace(t.Title)
	t.Notes = strings.TrimSpace(t.Notes)
	if c, err := ParseCategory(t.Type, t.Category); err == nil {
		t.Category = string(c)
	}
	if !t.Date.IsZero() {
		t.Date = FromMillis(Millis(t.Date))
	}
	return t
}
