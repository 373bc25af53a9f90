// Package core holds the ledger domain: transactions, categories, money and
// the list filter vocabulary shared by the query engine and the store.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency amount in cents. Arithmetic and SQL aggregation run on
// the integer, never on a float; the decimal string ("12.50") only exists at
// the wire and parsing boundaries.
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money, rounding half-up on the
// third decimal place (cents is the storage precision). Both dot and comma
// separators are accepted. Zero and negative amounts are rejected.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// Decimal returns the amount as a two-place decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimal places, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Sub returns m minus other. Used for the net total, which may be negative.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// MarshalJSON serializes the amount as a decimal string so no caller is ever
// handed a binary float.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number. Negative
// values are rejected here; the zero/missing distinction is left to
// TransactionInput.Validate.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	m.Cents = d.Shift(2).Round(0).IntPart()
	return nil
}
