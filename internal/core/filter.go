package core

import "time"

// Page size is one of a small enumerated set; anything else silently falls
// back to the default. Pages below 1 clamp to 1.
const DefaultPageSize = 10

var allowedPageSizes = [...]int{10, 20, 50}

// ListFilter is the conjunction of optional, narrowing predicates applied to
// both the page query and its aggregates. A nil field means "no constraint".
// From > To is not rejected; it is a well-defined filter matching zero rows.
type ListFilter struct {
	Type       *TransactionType
	From       *time.Time
	To         *time.Time
	CategoryID *int64
}

// IsEmpty reports whether no constraint is active.
func (f ListFilter) IsEmpty() bool {
	return f.Type == nil && f.From == nil && f.To == nil && f.CategoryID == nil
}

// NormalizePage clamps the requested page to a minimum of 1.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// NormalizePageSize returns the requested size if it is one of the allowed
// values, otherwise the default.
func NormalizePageSize(size int) int {
	for _, allowed := range allowedPageSizes {
		if size == allowed {
			return size
		}
	}
	return DefaultPageSize
}

// Totals is the grouped-sum aggregate over rows matching a filter. An absent
// group contributes zero. Net is income minus expense.
type Totals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Net     Money `json:"net"`
}
