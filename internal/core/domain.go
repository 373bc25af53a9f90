package core

import (
	"errors"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

type (
	// TransactionType partitions the ledger into income and expense rows.
	TransactionType string

	// Category is a seed-time label for transactions. (Name, Kind) is unique
	// and categories are never deleted in normal operation.
	Category struct {
		ID   int64           `json:"id"`
		Name string          `json:"name"`
		Kind TransactionType `json:"kind"`
	}

	// Transaction is one ledger entry. Category is populated on reads that
	// join the category table and nil otherwise.
	Transaction struct {
		ID         int64           `json:"id"`
		Type       TransactionType `json:"type"`
		Amount     Money           `json:"amount"`
		Date       time.Time       `json:"date"`
		Note       *string         `json:"note"`
		CategoryID int64           `json:"categoryId"`
		Category   *Category       `json:"category,omitempty"`
	}

	// TransactionInput carries the fields of a create request before
	// validation. Date zero means "now"; Note nil means no note.
	TransactionInput struct {
		Type       TransactionType
		Amount     Money
		Date       time.Time
		Note       *string
		CategoryID int64
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingCategory = errors.New("missing category")

	// ErrCategoryNotFound is returned when a write references a category id
	// that does not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrNotFound is returned when a transaction id has no row.
	ErrNotFound = errors.New("transaction not found")
)

// ParseTransactionType maps a raw string onto a TransactionType. The second
// return is false for anything other than the two known values; callers in
// the query path treat that as "no type filter" rather than an error.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(s) {
	case Income, Expense:
		return TransactionType(s), true
	}
	return "", false
}

// Validate checks the required create fields. A zero amount fails the same
// way a missing one does; the ledger only records movements of money.
func (in TransactionInput) Validate() error {
	if _, ok := ParseTransactionType(string(in.Type)); !ok {
		return ErrInvalidType
	}
	if in.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if in.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return nil
}

// IsValidation reports whether err belongs to the validation family, the
// class of failures that map to a client-error response.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingCategory)
}
